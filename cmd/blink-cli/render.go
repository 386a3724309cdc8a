package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"

	"blink/internal/catalog"
	"blink/internal/domain"
	"blink/internal/menu"
)

func renderTurn(res domain.TurnResult) string {
	var sb strings.Builder
	sb.WriteString(color.GreenString("blink: "))
	sb.WriteString(res.Reply + "\n")

	state := string(res.State)
	if res.Stage != "" && res.Stage != res.State {
		state += " (" + string(res.Stage) + ")"
	}
	meta := fmt.Sprintf("  [%s] session=%s", state, res.SessionID)
	if n := len(res.Summary.PendingOrder); n > 0 {
		meta += fmt.Sprintf(" items=%d total=$%.2f", n, res.Summary.OrderTotal)
	}
	if res.Summary.LastOrderReference != "" {
		meta += " ref=" + res.Summary.LastOrderReference
	}
	if res.SessionDone {
		meta += " done"
	}
	sb.WriteString(color.HiBlackString(meta) + "\n")
	return sb.String()
}

func renderSummary(id string, s domain.SessionSummary) string {
	var sb strings.Builder
	sb.WriteString(color.CyanString("Session %s\n", id))
	sb.WriteString(strings.Repeat("─", 40) + "\n")
	fmt.Fprintf(&sb, "state:   %s\n", s.State)
	fmt.Fprintf(&sb, "turns:   %d\n", s.TurnCount)
	fmt.Fprintf(&sb, "phone:   %s\n", check(s.HasPhone))
	fmt.Fprintf(&sb, "address: %s\n", check(s.HasAddress))
	if len(s.PendingOrder) > 0 {
		sb.WriteString("order:\n")
		for _, line := range s.PendingOrder {
			fmt.Fprintf(&sb, "  %d × %s\n", line.Quantity, line.Name)
		}
		fmt.Fprintf(&sb, "total:   $%.2f\n", s.OrderTotal)
	}
	if s.LastOrderReference != "" {
		fmt.Fprintf(&sb, "placed:  %s\n", s.LastOrderReference)
	}
	return sb.String()
}

func renderIntent(res domain.IntentResult) string {
	line := fmt.Sprintf("intent %s (%.2f)", res.Intent, res.Confidence)
	switch {
	case res.Entities.Phone != "":
		line += " phone=" + res.Entities.Phone
	case res.Entities.Address != "":
		line += " address=" + res.Entities.Address
	case len(res.Entities.ItemMentions) > 0:
		line += fmt.Sprintf(" mentions=%q", res.Entities.ItemMentions)
	}
	return color.CyanString(line) + "\n"
}

func renderValidation(r menu.Result) string {
	if len(r.Matched)+len(r.Ambiguous)+len(r.Unmatched) == 0 {
		return "No item mentions\n"
	}
	var sb strings.Builder
	for _, m := range r.Matched {
		fmt.Fprintf(&sb, "%s %q → %d × %s (%.2f)\n", color.GreenString("✓"), m.Mention, m.Quantity, m.Item.Name, m.Score)
	}
	for _, u := range r.Ambiguous {
		fmt.Fprintf(&sb, "%s %q ambiguous: %s\n", color.YellowString("?"), u.Mention, candidates(u.Candidates))
	}
	for _, u := range r.Unmatched {
		hint := candidates(u.Candidates)
		if hint == "" {
			hint = "no suggestions"
		}
		fmt.Fprintf(&sb, "%s %q unmatched: %s\n", color.RedString("✗"), u.Mention, hint)
	}
	return sb.String()
}

func renderMenu(cat *catalog.Catalog) string {
	var sb strings.Builder
	for _, category := range cat.Categories() {
		sb.WriteString(color.CyanString(category) + "\n")
		for _, item := range cat.InCategory(category) {
			fmt.Fprintf(&sb, "  %-18s $%6.2f", item.Name, item.Price)
			if len(item.Aliases) > 0 {
				sb.WriteString(color.HiBlackString("  aka " + strings.Join(item.Aliases, ", ")))
			}
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

func renderError(err error) string {
	return color.RedString("✗ %v", err)
}

func candidates(cands []menu.Candidate) string {
	parts := make([]string, 0, len(cands))
	for _, c := range cands {
		parts = append(parts, fmt.Sprintf("%s (%.2f)", c.Item.Name, c.Score))
	}
	return strings.Join(parts, ", ")
}

func check(ok bool) string {
	if ok {
		return color.GreenString("✓")
	}
	return color.RedString("✗")
}
