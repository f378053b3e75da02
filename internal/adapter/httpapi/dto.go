package httpapi

import (
	"time"

	"github.com/tallyup/tally-backend/internal/domain"
)

// --- requests ---

type createSessionRequest struct {
	Split bool `json:"split"`
}

type detailsRequest struct {
	Amount   *string `json:"amount,omitempty"`
	Name     *string `json:"name,omitempty"`
	Category *string `json:"category,omitempty"`
	Type     *string `json:"type,omitempty"`
}

type personRequest struct {
	PersonID string `json:"person_id"`
}

type groupRequest struct {
	GroupID string `json:"group_id"`
}

type splitModeRequest struct {
	Enabled bool `json:"enabled"`
}

type methodRequest struct {
	Method string `json:"method"`
}

type splitUpdateRequest struct {
	Percentage *string `json:"percentage,omitempty"`
	Amount     *string `json:"amount,omitempty"`
	Shares     *int    `json:"shares,omitempty"`
	Adjustment *string `json:"adjustment,omitempty"`
}

type tokenRequest struct {
	PersonID string `json:"person_id"`
}

// --- views ---

type sessionView struct {
	ID                string           `json:"id"`
	Stage             string           `json:"stage"`
	CanAdvance        bool             `json:"can_advance"`
	ValidationMessage string           `json:"validation_message,omitempty"`
	Details           detailsView      `json:"details"`
	Participants      participantsView `json:"participants"`
	Split             *splitView       `json:"split,omitempty"`
}

type detailsView struct {
	Amount   string `json:"amount"`
	Name     string `json:"name"`
	Category string `json:"category"`
	Type     string `json:"type"`
}

type participantsView struct {
	SplitEnabled bool     `json:"split_enabled"`
	IDs          []string `json:"ids"`
	PayerID      string   `json:"payer_id,omitempty"`
	GroupID      string   `json:"group_id,omitempty"`
}

type splitView struct {
	Method   string           `json:"method"`
	Balanced bool             `json:"balanced"`
	Entries  []splitEntryView `json:"entries"`
}

type splitEntryView struct {
	PersonID   string `json:"person_id"`
	Amount     string `json:"amount"`
	Percentage string `json:"percentage"`
	Shares     int    `json:"shares"`
	Adjustment string `json:"adjustment"`
}

type draftView struct {
	ID           string           `json:"id"`
	Type         string           `json:"type"`
	Amount       string           `json:"amount"`
	CurrencyCode string           `json:"currency_code"`
	Name         string           `json:"name"`
	Category     string           `json:"category,omitempty"`
	IsSplit      bool             `json:"is_split"`
	PayerID      string           `json:"payer_id,omitempty"`
	Method       string           `json:"method,omitempty"`
	Splits       []splitEntryView `json:"splits,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
}

type personView struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type groupView struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Members []string `json:"members"`
}

// newSessionView snapshots a session. The caller must hold the session lock.
func newSessionView(s *session) sessionView {
	coord := s.coord
	details := coord.Details()
	participants := coord.Participants()

	view := sessionView{
		ID:                s.id.String(),
		Stage:             string(coord.Stage()),
		CanAdvance:        coord.CanAdvance(),
		ValidationMessage: coord.ValidationMessage(),
		Details: detailsView{
			Amount:   details.Amount().StringFixed(domain.MoneyScale),
			Name:     details.Name(),
			Category: string(details.Category()),
			Type:     string(details.Type()),
		},
		Participants: participantsView{
			SplitEnabled: participants.SplitEnabled(),
			IDs:          idStrings(participants.Participants()),
		},
	}
	if payer := participants.Payer(); payer != nil {
		view.Participants.PayerID = payer.String()
	}
	if group := participants.ActiveGroup(); group != nil {
		view.Participants.GroupID = group.String()
	}

	if participants.SplitEnabled() {
		split := coord.Split()
		view.Split = &splitView{
			Method:   string(split.Method()),
			Balanced: split.IsBalanced(),
			Entries:  splitEntries(participants.Participants(), split.CalculatedSplits()),
		}
	}

	return view
}

func newDraftView(d *domain.TransactionDraft) draftView {
	view := draftView{
		ID:           d.ID.String(),
		Type:         string(d.Type),
		Amount:       d.Amount.StringFixed(domain.MoneyScale),
		CurrencyCode: d.CurrencyCode,
		Name:         d.Name,
		Category:     string(d.Category),
		IsSplit:      d.IsSplit,
		CreatedAt:    d.CreatedAt,
	}
	if d.PayerID != nil {
		view.PayerID = d.PayerID.String()
	}
	if d.Method != nil {
		view.Method = string(*d.Method)
	}
	if d.IsSplit {
		view.Splits = splitEntries(d.Participants, d.Splits)
	}
	return view
}

func splitEntries(order []domain.PersonID, splits map[domain.PersonID]domain.SplitDetail) []splitEntryView {
	entries := make([]splitEntryView, 0, len(order))
	for _, id := range order {
		detail := splits[id]
		entries = append(entries, splitEntryView{
			PersonID:   id.String(),
			Amount:     detail.Amount.StringFixed(domain.MoneyScale),
			Percentage: detail.Percentage.String(),
			Shares:     detail.Shares,
			Adjustment: detail.Adjustment.StringFixed(domain.MoneyScale),
		})
	}
	return entries
}

func idStrings(ids []domain.PersonID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.String())
	}
	return out
}
