package domain

import "time"

// Kind classifies what a project scaffolds into. Seeded kinds match the
// project_types table.
type Kind string

const (
	KindWebsite     Kind = "website"
	KindTelegramBot Kind = "telegrambot"
	KindDiscordBot  Kind = "discordbot"
	KindTradingBot  Kind = "tradingbot"
	KindScheduler   Kind = "scheduler"
	KindCustom      Kind = "custom"
)

// RequiresProvisioning reports whether creating a project of this kind
// schedules the background agent. Only websites get agent-driven scaffolding.
func (k Kind) RequiresProvisioning() bool {
	return k == KindWebsite
}

func (k Kind) Valid() bool {
	switch k {
	case KindWebsite, KindTelegramBot, KindDiscordBot, KindTradingBot, KindScheduler, KindCustom:
		return true
	}
	return false
}

// Status is the provisioning state machine. A project starts at
// StatusCreating and moves at most once to StatusReady or StatusFailed;
// a terminal state is never left by the same provisioning attempt.
type Status string

const (
	StatusCreating Status = "creating"
	StatusReady    Status = "ready"
	StatusFailed   Status = "failed"
)

func (s Status) Valid() bool {
	return s == StatusCreating || s == StatusReady || s == StatusFailed
}

func (s Status) Terminal() bool {
	return s == StatusReady || s == StatusFailed
}

// Project is a single scaffolded website/bot workspace.
// Storage-agnostic, shared across repository and HTTP layers.
type Project struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Path        string    `json:"project_path,omitempty"`
	Kind        Kind      `json:"kind"`
	Status      Status    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}
