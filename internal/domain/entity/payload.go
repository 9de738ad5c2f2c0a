package entity

import "time"

// ImagePayload подготовленное изображение для классификатора.
type ImagePayload struct {
	Data      []byte
	MediaType string // например "image/jpeg"
}

// JournalEntry строка журнала вердиктов.
type JournalEntry struct {
	ID         string
	RunID      string
	Epoch      uint64
	File       string
	State      RecordState
	Verdict    Verdict
	Reason     string
	Confidence int
	Attempts   int
	Strictness int
	NoBrand    bool
	DecidedAt  time.Time
}

// JournalEntryFor строит строку журнала из терминальной записи.
func JournalEntryFor(id, runID string, r ImageRecord) JournalEntry {
	return JournalEntry{
		ID:         id,
		RunID:      runID,
		Epoch:      r.Epoch,
		File:       r.Name,
		State:      r.State,
		Verdict:    r.Verdict,
		Reason:     r.Reason,
		Confidence: r.Confidence,
		Attempts:   r.Attempts,
		Strictness: r.Settings.Strictness,
		NoBrand:    r.Settings.NoBrandMode,
		DecidedAt:  r.FinishedAt,
	}
}
