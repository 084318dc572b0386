package ux

import (
	"fmt"

	"github.com/digitalfte/fte/internal/vault"
	"github.com/digitalfte/fte/internal/zone"
)

// RenderStatus prints the store's current folder-count breakdown and
// zone, in the teacher's status-display layout.
func RenderStatus(store *vault.Store, z *zone.Policy) {
	fmt.Printf("%sVault:%s   %s\n", Bold, Reset, store.Root)
	fmt.Printf("%sZone:%s    %s\n", Bold, Reset, z.Zone)

	fmt.Printf("\n%sFolders:%s\n", Bold, Reset)
	folders := []string{
		vault.NeedsAction, vault.PendingApproval, vault.Approved,
		vault.Rejected, vault.Done, vault.Quarantine,
	}
	for _, f := range folders {
		handles, err := store.List(f)
		if err != nil {
			fmt.Printf("  %-20s %s(error: %s)%s\n", f, Dim, err, Reset)
			continue
		}
		fmt.Printf("  %-20s %s%d%s\n", f, Dim, len(handles), Reset)
	}
	fmt.Println()
}
