package docs

var topics = []Topic{
	{
		Name:    "quickstart",
		Title:   "Quick Start",
		Summary: "Getting started with fte",
		Content: topicQuickstart,
	},
	{
		Name:    "config",
		Title:   "Configuration Reference",
		Summary: "Config keys, YAML layering, and defaults",
		Content: topicConfig,
	},
	{
		Name:    "folders",
		Title:   "Vault Folder Layout",
		Summary: "The state-machine folders and what lives in each",
		Content: topicFolders,
	},
	{
		Name:    "zones",
		Title:   "Cloud / Local Zones",
		Summary: "What each zone may do and how credentials are placed",
		Content: topicZones,
	},
	{
		Name:    "sinks",
		Title:   "Sinks",
		Summary: "Mail, social, and accounting side-effect executors",
		Content: topicSinks,
	},
	{
		Name:    "cli",
		Title:   "CLI Surface",
		Summary: "run, dashboard-only, demo, doctor, docs",
		Content: topicCLI,
	},
}

const topicQuickstart = `Quick Start
===========

1. Point fte at a vault directory:

    export VAULT_PATH=/path/to/vault

2. Run a single cycle and inspect the result:

    fte run --once

3. Run continuously:

    fte run

4. Serve the dashboard without ingesting new events:

    fte dashboard-only

5. Try the whole pipeline against a scratch vault:

    fte demo

Artifacts flow Needs_Action -> Pending_Approval -> Approved/Rejected ->
Done. A human (or, above the confidence threshold in the local zone, the
orchestrator itself) moves plans from Pending_Approval.
`

const topicConfig = `Configuration Reference
=======================

fte loads a YAML file first (if present), then layers environment
variable overrides with the same key names on top. Missing file is not
an error; missing VAULT_PATH is.

  VAULT_PATH               string   Required. Root of the content store.
  GMAIL_CHECK_INTERVAL     seconds  How often the mail watcher polls. Default 60.
  GMAIL_FILTER             string   Gmail search query restricting ingestion.
  ASSISTANT_MODEL          string   opus, sonnet, or haiku. Default sonnet.
  LOG_LEVEL                string   debug, info, warn, or error. Default info.
  DAILY_SEND_LIMIT         int      Rate counter ceiling per sink per day. Default 50.
  FILE_WATCH_ENABLED       bool     Enable the Incoming_Files watcher.
  FILE_WATCH_DRY_RUN       bool     Detect and log only; nothing is materialized or moved.
  AUTO_APPROVE_THRESHOLD   float    Confidence needed to auto-approve. 1.0 disables.
  VIP_SENDERS              csv      Senders always classified as high priority.
  WEB_ENABLED              bool     Run the embedded dashboard.
  WEB_PORT                 int      Dashboard listen port. Default 8080.
  WORK_ZONE                string   cloud or local. Default local.

Execution-side secrets (mail credentials, destination API keys) are
never read from this file — they come from the environment at the
provider layer, so they can be kept out of the zone that doesn't need
them (see the zones topic).
`

const topicFolders = `Vault Folder Layout
===================

  Needs_Action/            Fresh artifacts, written only by watchers.
  Plans/                   Scratch space the planner may use mid-draft.
  Pending_Approval/        Drafted plans awaiting a decision.
  Approved/                Plans a human (or auto-approve) accepted.
  Rejected/                Plans a human rejected; reviewed for lessons.
  Done/                    Terminal state for every artifact and plan.
  Logs/                    Daily append-only audit log and rate counters.
  Incoming_Files/          Drop zone for the file watcher.
  Incoming_Files/.processed/   Originals the file watcher has already seen.
  Quarantine/              Artifacts that failed with a transient error.
  In_Progress/<agent>/     Optional second claim tier for multi-agent mode.
  Updates/                 Cloud-zone writes; local zone drains on each cycle.
  Briefings/               Saved period reports.

Plus two top-level files: Company_Handbook.md (planner context, edit to
taste) and Agent_Memory.md (append-only lessons from rejected plans).

An artifact's filename is its identity across every move. It lives in
exactly one folder at a time — moves are atomic renames.
`

const topicZones = `Cloud / Local Zones
====================

A process runs in exactly one zone for its lifetime (WORK_ZONE). The
zone gates which operations it may perform:

  capability             cloud   local
  ----------------------------------------
  read_external_events    yes     yes
  draft_plan               yes     yes
  execute_side_effect      no      yes
  auto_approve              no      yes
  approve_reject            no      yes
  write_dashboard            no      yes

Cloud zone can watch for events and draft plans, but never executes a
side effect, auto-approves, or writes the dashboard index; it hands
additions to the local zone through Updates/. Local zone owns
everything downstream of a plan existing.

Credential placement is checked at startup: a cloud-zone process
holding execution secrets, or a local-zone process missing mail
credentials, produces a warning (never a hard error) on startup.
`

const topicSinks = `Sinks
=====

A sink executes one plan's side effect. Sinks are looked up by the
plan's action field; an unrecognized action means no side effect.

  action          sink          notes
  ---------------------------------------------------------------
  reply           mail          Rate-limited; auth/recipient
                                 rejection is permanent, everything
                                 else is treated as transient.
  social_post     social        One poster per platform; the
                                 280-char platform truncates to
                                 277 chars plus an ellipsis.
  invoice         accounting    Wraps an Odoo-shaped JSON-RPC
                                 backend; malformed payloads are
                                 permanent, connection failures are
                                 transient.

Every sink error is tagged Transient or Permanent. Transient failures
leave the artifact in Approved to be retried on the next cycle (an
auto-approved plan goes back to Pending_Approval); Permanent failures
move it straight to Done with a failure-tagged result.
`

const topicCLI = `CLI Surface
===========

  fte run                 Run the scheduler continuously.
  fte run --once           Run exactly one cycle and exit.
  fte dashboard-only        Serve the HTTP dashboard without ingesting events.
  fte demo                  Scripted walkthrough against a temporary vault.
  fte doctor                Gather failure context and ask the assistant to diagnose it.
  fte docs                  List documentation topics.
  fte docs <topic>          Show one documentation topic.

Flags:

  --auto        Override the configured auto-approve threshold for this run.
  --dry-run     Print the resolved cycle plan without executing it.

Exit code is 0 on clean shutdown (including Ctrl+C); non-zero only for
unrecoverable startup errors such as missing mail credentials or an
invalid configuration.
`
