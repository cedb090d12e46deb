package autoreply

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	domainAutoReply "github.com/multiwa/multiwa/domains/autoreply"
)

// ReplyGenerator produces an AI reply for a rule. Implementations live in
// integrations; the matcher only needs this port.
type ReplyGenerator interface {
	Generate(ctx context.Context, prompt, message string) (string, error)
}

// TemplateVars are the values substituted into reply templates.
type TemplateVars struct {
	SenderName   string
	SenderNumber string
	Message      string
	Now          time.Time
}

var priorityRank = map[domainAutoReply.Priority]int{
	domainAutoReply.PriorityHigh:   0,
	domainAutoReply.PriorityNormal: 1,
	domainAutoReply.PriorityLow:    2,
}

// FindMatch returns the first active rule matching the text, evaluated in
// priority order (high before normal before low, stable within a tier).
// Returns nil when nothing matches.
func FindMatch(text string, rules []domainAutoReply.Rule) *domainAutoReply.Rule {
	active := make([]domainAutoReply.Rule, 0, len(rules))
	for _, rule := range rules {
		if rule.Active {
			active = append(active, rule)
		}
	}

	sort.SliceStable(active, func(i, j int) bool {
		return rankOf(active[i].Priority) < rankOf(active[j].Priority)
	})

	for i := range active {
		if matches(active[i], text) {
			return &active[i]
		}
	}
	return nil
}

func rankOf(p domainAutoReply.Priority) int {
	if rank, ok := priorityRank[p]; ok {
		return rank
	}
	return priorityRank[domainAutoReply.PriorityNormal]
}

func matches(rule domainAutoReply.Rule, text string) bool {
	keyword := rule.Keyword
	candidate := text
	if !rule.CaseSensitive && rule.MatchType != domainAutoReply.MatchRegex {
		keyword = strings.ToLower(keyword)
		candidate = strings.ToLower(candidate)
	}

	switch rule.MatchType {
	case domainAutoReply.MatchExact:
		return candidate == keyword
	case domainAutoReply.MatchContains:
		return strings.Contains(candidate, keyword)
	case domainAutoReply.MatchStartsWith:
		return strings.HasPrefix(candidate, keyword)
	case domainAutoReply.MatchEndsWith:
		return strings.HasSuffix(candidate, keyword)
	case domainAutoReply.MatchRegex:
		pattern := rule.Keyword
		if !rule.CaseSensitive {
			pattern = "(?i)" + pattern
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			// An invalid pattern is a non-match, never an error upstream.
			logrus.WithError(err).Warnf("[AUTOREPLY] Invalid regex in rule %s", rule.ID)
			return false
		}
		return re.MatchString(text)
	default:
		return false
	}
}

// SenderAllowed checks a rule's allow-list. The list holds comma separated
// bare numbers; an empty list allows everyone.
func SenderAllowed(allowedSenders, senderJID string) bool {
	trimmed := strings.TrimSpace(allowedSenders)
	if trimmed == "" {
		return true
	}

	senderDigits := bareDigits(senderJID)
	for _, entry := range strings.Split(trimmed, ",") {
		if bareDigits(entry) == senderDigits && senderDigits != "" {
			return true
		}
	}
	return false
}

func bareDigits(s string) string {
	if at := strings.Index(s, "@"); at >= 0 {
		s = s[:at]
	}
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// RenderTemplate substitutes placeholders in a single pass over the
// literal template. Values are never re-scanned for placeholders.
func RenderTemplate(template string, vars TemplateVars) string {
	replacer := strings.NewReplacer(
		"{sender_name}", vars.SenderName,
		"{sender_number}", vars.SenderNumber,
		"{message}", vars.Message,
		"{time}", vars.Now.Format("15:04:05"),
		"{date}", vars.Now.Format("2006-01-02"),
	)
	return replacer.Replace(template)
}

// RenderReply produces the reply text for a matched rule. AI rules
// delegate to the generator and fall back to the template on any failure;
// AI output is returned verbatim, without placeholder substitution.
func RenderReply(ctx context.Context, rule domainAutoReply.Rule, vars TemplateVars, gen ReplyGenerator) string {
	if rule.UseAI && gen != nil {
		reply, err := gen.Generate(ctx, rule.AIPrompt, vars.Message)
		if err == nil && strings.TrimSpace(reply) != "" {
			return reply
		}
		if err != nil {
			logrus.WithError(err).Warnf("[AUTOREPLY] AI reply failed for rule %s, using template", rule.ID)
		}
	}
	return RenderTemplate(rule.Response, vars)
}
