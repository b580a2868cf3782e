package history

import (
	"fmt"
	"strings"
	"time"

	"github.com/halcyonchat/halcyon/internal/schema"
)

// ContextBlock carries the time-awareness facts rendered between the recent
// turns and the new prompt.
type ContextBlock struct {
	LastSpeaker   schema.Speaker
	LastTimestamp time.Time
	Now           time.Time
}

// BuildPrompt renders the bounded tiers plus the context block and the new
// user message into one prompt string.
//
// Section order is a contract: older, more-compressed material precedes
// newer, more-verbatim material so the model's attention budget favours
// recency. Sections whose tier is empty are omitted entirely.
//
//	preamble
//	[OVERVIEW]  tier-2 mega-summaries, oldest first
//	[SUMMARY]   tier-1 summaries, oldest first
//	[RECENT]    tier-0 turns, oldest first, compressed text when present
//	[CONTEXT]   last message, current time, weekday, time of day
//	[PROMPT]    the new user text
func BuildPrompt(s *Session, preamble string, ctx ContextBlock, newUserText string) string {
	tier0, tier1, tier2 := s.Snapshot()

	var sections []string

	if preamble != "" {
		sections = append(sections, strings.TrimSpace(preamble))
	}

	if len(tier2) > 0 {
		var b strings.Builder
		b.WriteString("[OVERVIEW]\n")
		for _, mega := range tier2 {
			b.WriteString("- ")
			b.WriteString(mega.Text)
			b.WriteString("\n")
		}
		if kws := tier2[len(tier2)-1].Keywords; len(kws) > 0 {
			b.WriteString("Names mentioned so far: ")
			b.WriteString(strings.Join(kws, ", "))
			b.WriteString("\n")
		}
		sections = append(sections, strings.TrimRight(b.String(), "\n"))
	}

	if len(tier1) > 0 {
		var b strings.Builder
		b.WriteString("[SUMMARY]\n")
		for _, sum := range tier1 {
			fmt.Fprintf(&b, "- (%s) %s\n", sum.Speaker, sum.Text)
		}
		sections = append(sections, strings.TrimRight(b.String(), "\n"))
	}

	if len(tier0) > 0 {
		var b strings.Builder
		b.WriteString("[RECENT]\n")
		for _, turn := range tier0 {
			fmt.Fprintf(&b, "%s: %s\n", turn.Speaker, turn.DisplayText())
		}
		sections = append(sections, strings.TrimRight(b.String(), "\n"))
	}

	if block := renderContext(ctx); block != "" {
		sections = append(sections, block)
	}

	sections = append(sections, "[PROMPT]\n"+newUserText)

	return strings.Join(sections, "\n\n")
}

func renderContext(ctx ContextBlock) string {
	if ctx.Now.IsZero() {
		return ""
	}

	var b strings.Builder
	b.WriteString("[CONTEXT]\n")
	if !ctx.LastTimestamp.IsZero() {
		fmt.Fprintf(&b, "Last message: %s (%s)\n",
			ctx.LastTimestamp.Format("2006-01-02 15:04"), ctx.LastSpeaker)
	}
	fmt.Fprintf(&b, "Current time: %s, %s %s",
		ctx.Now.Format("2006-01-02 15:04"), ctx.Now.Weekday(), timeOfDay(ctx.Now))
	return b.String()
}

// timeOfDay buckets an hour into a coarse label for the context block.
func timeOfDay(t time.Time) string {
	switch h := t.Hour(); {
	case h < 5:
		return "night"
	case h < 12:
		return "morning"
	case h < 18:
		return "afternoon"
	case h < 22:
		return "evening"
	default:
		return "night"
	}
}
