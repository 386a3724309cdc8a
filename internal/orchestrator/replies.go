package orchestrator

import (
	"fmt"
	"strings"

	"blink/internal/domain"
	"blink/internal/gateway"
	"blink/internal/menu"
)

// prompt anchors a reply to the step the session is waiting on.
func (s *Service) prompt(sess *domain.Session) string {
	switch sess.State {
	case domain.StateGreeting:
		return "Would you like to hear the menu?"
	case domain.StateBrowsingMenu, domain.StateBuildingOrder:
		return "What would you like to order?"
	case domain.StateAwaitingPhone:
		return "What's the best phone number for the order?"
	case domain.StateAwaitingAddress:
		return "What's the delivery address?"
	case domain.StateConfirmingOrder:
		return "Your order is " + orderSummary(sess) + " Shall I place it?"
	case domain.StateOrderPlaced:
		return "Is there anything else I can help you with?"
	default:
		return "How can I help?"
	}
}

func smallTalkReply(sess *domain.Session) string {
	if sess.State == domain.StateGreeting && sess.TurnCount <= 1 {
		return "Hi, thanks for calling Blink!"
	}
	return "Happy to help."
}

func orderSummary(sess *domain.Session) string {
	parts := make([]string, 0, len(sess.PendingOrder))
	for _, line := range sess.PendingOrder {
		parts = append(parts, fmt.Sprintf("%d %s", line.Quantity, line.Item.Name))
	}
	return fmt.Sprintf("%s, for a total of %s.", joinWords(parts), money(sess.OrderTotal()))
}

func describeMatches(matches []menu.Match) string {
	parts := make([]string, 0, len(matches))
	for _, m := range matches {
		parts = append(parts, fmt.Sprintf("%d %s", m.Quantity, m.Item.Name))
	}
	return "added " + joinWords(parts)
}

// menuReply lists workflow items when the backend returned any and the local
// catalog otherwise, grouped by category and capped at the list limit.
func (s *Service) menuReply(remote []gateway.MenuItem) string {
	type group struct {
		name  string
		items []string
	}
	var groups []*group
	index := map[string]*group{}
	add := func(category, name string) {
		if category == "" {
			category = "Menu"
		}
		g, ok := index[category]
		if !ok {
			g = &group{name: category}
			index[category] = g
			groups = append(groups, g)
		}
		g.items = append(g.items, name)
	}

	listed := 0
	if len(remote) > 0 {
		for _, item := range remote {
			if listed == s.cfg.MenuListLimit {
				break
			}
			add(item.Category, item.Name)
			listed++
		}
	} else if s.catalog != nil {
	outer:
		for _, category := range s.catalog.Categories() {
			for _, item := range s.catalog.InCategory(category) {
				if listed == s.cfg.MenuListLimit {
					break outer
				}
				add(category, item.Name)
				listed++
			}
		}
	}
	if len(groups) == 0 {
		return "Our menu is being updated right now."
	}

	parts := make([]string, 0, len(groups))
	for _, g := range groups {
		parts = append(parts, fmt.Sprintf("%s: %s", g.name, strings.Join(g.items, ", ")))
	}
	return "Here's what we have. " + strings.Join(parts, ". ") + "."
}

func (s *Service) clarificationReply(result menu.Result) string {
	var sb strings.Builder
	if len(result.Matched) > 0 {
		sb.WriteString("I've " + describeMatches(result.Matched) + ". ")
	}
	for _, u := range result.Ambiguous {
		names := candidateNames(u.Candidates)
		fmt.Fprintf(&sb, "When you said %q, did you mean %s? ", u.Mention, joinAlternatives(names))
	}
	for _, u := range result.Unmatched {
		if names := candidateNames(u.Candidates); len(names) > 0 {
			fmt.Fprintf(&sb, "I couldn't find %q on the menu. Did you mean %s? ", u.Mention, joinAlternatives(names))
			continue
		}
		fmt.Fprintf(&sb, "I couldn't find %q on the menu. ", u.Mention)
		if s.catalog != nil {
			if picks := s.catalog.Cheapest(3); len(picks) > 0 {
				names := make([]string, 0, len(picks))
				for _, p := range picks {
					names = append(names, p.Name)
				}
				fmt.Fprintf(&sb, "We have things like %s. ", joinWords(names))
			}
		}
	}
	sb.WriteString("Could you tell me which item you'd like?")
	return sb.String()
}

func placedReply(ref, eta string) string {
	reply := fmt.Sprintf("Your order is placed. Your reference is %s.", ref)
	if eta != "" {
		reply += fmt.Sprintf(" It should be with you in about %s.", eta)
	}
	return reply + " Thanks for ordering with Blink!"
}

func candidateNames(cands []menu.Candidate) []string {
	names := make([]string, 0, len(cands))
	for _, c := range cands {
		names = append(names, c.Item.Name)
	}
	return names
}

func joinWords(parts []string) string {
	switch len(parts) {
	case 0:
		return ""
	case 1:
		return parts[0]
	}
	return strings.Join(parts[:len(parts)-1], ", ") + " and " + parts[len(parts)-1]
}

func joinAlternatives(parts []string) string {
	switch len(parts) {
	case 0:
		return ""
	case 1:
		return parts[0]
	}
	return strings.Join(parts[:len(parts)-1], ", ") + " or " + parts[len(parts)-1]
}

func money(v float64) string {
	return fmt.Sprintf("$%.2f", v)
}
