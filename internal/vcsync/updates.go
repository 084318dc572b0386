package vcsync

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/digitalfte/fte/internal/vault"
)

// Update is one small append-only fact Cloud records for Local to pick
// up — a plan was drafted, an artifact arrived — without either zone
// touching the other's files directly.
type Update struct {
	Kind    string `json:"kind"`
	Source  string `json:"source"`
	Detail  string `json:"detail"`
	Written string `json:"written"` // RFC3339
}

// WriteUpdate appends one Update file under Updates/, named so
// concurrent writers from the same zone never collide.
func WriteUpdate(store *vault.Store, name string, u Update) error {
	data, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("vcsync: encoding update: %w", err)
	}
	h := vault.NewHeader()
	_, err = store.Write(vault.Updates, name, h, string(data))
	return err
}

// DrainUpdates reads every pending Update, in filename order, calls
// apply for each, and deletes the update file once applied. If apply
// returns an error for one update, draining stops and that update (and
// anything after it) is left for the next cycle — matching the
// single-writer rule that only Local ever drains this folder.
func DrainUpdates(store *vault.Store, apply func(Update) error) (int, error) {
	handles, err := store.List(vault.Updates)
	if err != nil {
		return 0, fmt.Errorf("vcsync: listing updates: %w", err)
	}
	sort.Slice(handles, func(i, j int) bool { return handles[i].Name < handles[j].Name })

	applied := 0
	for _, h := range handles {
		_, body, err := store.Read(h)
		if err != nil {
			return applied, fmt.Errorf("vcsync: reading update %s: %w", h.Name, err)
		}
		var u Update
		if err := json.Unmarshal([]byte(body), &u); err != nil {
			return applied, fmt.Errorf("vcsync: parsing update %s: %w", h.Name, err)
		}
		if err := apply(u); err != nil {
			return applied, fmt.Errorf("vcsync: applying update %s: %w", h.Name, err)
		}
		if err := store.Delete(h); err != nil {
			return applied, fmt.Errorf("vcsync: removing drained update %s: %w", h.Name, err)
		}
		applied++
	}
	return applied, nil
}
