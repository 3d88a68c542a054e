// Package insights periodically re-analyses a participant's journal to
// produce engagement and mood statistics. Each signed-in participant owns
// one [Scheduler]; it is started on login and stopped on logout, so no
// analysis work outlives the session.
package insights

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/solacevoice/solace/pkg/store"
)

// Analysis is one snapshot of a participant's conversation history.
type Analysis struct {
	ParticipantID string
	GeneratedAt   time.Time

	SessionCount int

	// TurnCount covers spoken turns only; transcript log entries are
	// excluded.
	TurnCount            int
	ParticipantTurnCount int
	CompanionTurnCount   int

	// Average utterance lengths in characters.
	AverageParticipantLength float64
	AverageCompanionLength   float64

	// TopEmotions counts screened emotion labels on participant turns.
	TopEmotions map[string]int

	// AverageSentiment is the mean comparative sentiment across participant
	// turns. Zero when no turns carry a score; check ParticipantTurnCount.
	AverageSentiment float64

	// Span is the time elapsed since the participant's oldest session
	// started.
	Span time.Duration
}

// TopEmotion returns the most frequent emotion label, breaking ties
// alphabetically. Empty when no turns have been screened.
func (a *Analysis) TopEmotion() string {
	labels := make([]string, 0, len(a.TopEmotions))
	for label := range a.TopEmotions {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool {
		ci, cj := a.TopEmotions[labels[i]], a.TopEmotions[labels[j]]
		if ci != cj {
			return ci > cj
		}
		return labels[i] < labels[j]
	})
	if len(labels) == 0 {
		return ""
	}
	return labels[0]
}

// Analyze computes a fresh [Analysis] over every session the participant has
// in the journal.
func Analyze(ctx context.Context, journal store.Journal, participantID string) (*Analysis, error) {
	sessions, err := journal.ListSessions(ctx, participantID)
	if err != nil {
		return nil, fmt.Errorf("insights: list sessions: %w", err)
	}

	a := &Analysis{
		ParticipantID: participantID,
		GeneratedAt:   time.Now(),
		SessionCount:  len(sessions),
		TopEmotions:   map[string]int{},
	}

	var (
		participantChars int
		companionChars   int
		sentimentSum     float64
		sentimentCount   int
		oldestStart      time.Time
	)

	for _, sess := range sessions {
		if oldestStart.IsZero() || sess.StartedAt.Before(oldestStart) {
			oldestStart = sess.StartedAt
		}
		turns, err := journal.Turns(ctx, sess.ID)
		if err != nil {
			return nil, fmt.Errorf("insights: turns for session %s: %w", sess.ID, err)
		}
		for _, t := range turns {
			if t.TranscriptOnly {
				continue
			}
			switch t.Author {
			case store.AuthorParticipant:
				a.ParticipantTurnCount++
				participantChars += len(t.Text)
				if t.SentimentLabel != "" {
					a.TopEmotions[t.SentimentLabel]++
					sentimentSum += t.SentimentComparative
					sentimentCount++
				}
			case store.AuthorCompanion:
				a.CompanionTurnCount++
				companionChars += len(t.Text)
			default:
				continue
			}
			a.TurnCount++
		}
	}

	if a.ParticipantTurnCount > 0 {
		a.AverageParticipantLength = float64(participantChars) / float64(a.ParticipantTurnCount)
	}
	if a.CompanionTurnCount > 0 {
		a.AverageCompanionLength = float64(companionChars) / float64(a.CompanionTurnCount)
	}
	if sentimentCount > 0 {
		a.AverageSentiment = sentimentSum / float64(sentimentCount)
	}
	if !oldestStart.IsZero() {
		a.Span = time.Since(oldestStart)
	}
	return a, nil
}
