package assistant

import (
	"eduassist/internal/domain"
	"fmt"
	"strings"
)

const (
	instructionSuffix = " Provide clear, concise responses focused on educational context."

	coursePreambleFormat = "Related to course: %s. "
	topicPreambleFormat  = "Specifically about: %s. "
)

//nolint:gochecknoglobals // Immutable lookup table.
var roleInstructions = map[domain.Role]string{
	domain.RoleAdmin:    "You are an administrative assistant helping with LMS management tasks.",
	domain.RoleStudent:  "You are a helpful study assistant supporting student learning needs.",
	domain.RoleLecturer: "You are an educational assistant helping with teaching and course management.",
}

// SystemInstruction returns the system-level instruction for role. Unknown
// roles get the student instruction.
func SystemInstruction(role string) string {
	base, ok := roleInstructions[domain.Role(role)]
	if !ok {
		base = roleInstructions[domain.DefaultRole]
	}

	return base + instructionSuffix
}

// UserInput prefixes query with the course and topic preamble.
func UserInput(query string, qctx domain.QueryContext) string {
	if qctx.IsEmpty() {
		return query
	}

	var b strings.Builder
	if qctx.Course != "" {
		fmt.Fprintf(&b, coursePreambleFormat, qctx.Course)
	}
	if qctx.Topic != "" {
		fmt.Fprintf(&b, topicPreambleFormat, qctx.Topic)
	}
	b.WriteString(query)

	return b.String()
}
