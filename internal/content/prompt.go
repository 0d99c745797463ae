package content

import (
	"fmt"
	"strings"
	"time"

	"github.com/goodsign/monday"

	"linkedin-autopilot-go/internal/models"
	"linkedin-autopilot-go/internal/persona"
)

const dateLayout = "Monday, 2 January 2006"

// LocalizedDate formats t in locale, falling back to en_US for unknown locales.
func LocalizedDate(t time.Time, locale string) string {
	return monday.Format(t, dateLayout, resolveLocale(locale))
}

func resolveLocale(locale string) monday.Locale {
	for _, l := range monday.ListLocales() {
		if string(l) == locale {
			return l
		}
	}
	return monday.LocaleEnUS
}

// BuildPostPrompt returns the system and user messages for the post call.
// The used themes are listed verbatim so the model can avoid them.
func BuildPostPrompt(p *persona.Persona, used []string, sources []models.SearchSource, now time.Time, locale string) (string, string) {
	var sys strings.Builder
	fmt.Fprintf(&sys, "Role: %s\n", p.Role)
	if p.Goal != "" {
		fmt.Fprintf(&sys, "Goal: %s\n", p.Goal)
	}
	if p.Owner.Name != "" {
		fmt.Fprintf(&sys, "\nProfile owner: %s\n", p.Owner.Name)
		if p.Owner.Bio != "" {
			fmt.Fprintf(&sys, "Bio: %s\n", p.Owner.Bio)
		}
		if len(p.Owner.Tools) > 0 {
			fmt.Fprintf(&sys, "Tools: %s\n", strings.Join(p.Owner.Tools, ", "))
		}
	}
	if p.Audience != "" {
		fmt.Fprintf(&sys, "Audience: %s\n", p.Audience)
	}
	if len(p.Guidelines) > 0 {
		sys.WriteString("\nContent guidelines:\n")
		for _, g := range p.Guidelines {
			fmt.Fprintf(&sys, "- %s\n", g)
		}
	}
	sys.WriteString("\nOutput format: a single valid JSON object with exactly two string keys, ")
	sys.WriteString(`"title" (hook-based, no **) and "content" (the full post text). `)
	sys.WriteString("Do not wrap it in prose.\n")

	var user strings.Builder
	fmt.Fprintf(&user, "Today is %s.\n\n", LocalizedDate(now, locale))

	user.WriteString("Recently used themes. The chosen topic and title MUST NOT be one of these:\n")
	if len(used) == 0 {
		user.WriteString("(none)\n")
	}
	for _, theme := range used {
		fmt.Fprintf(&user, "- %s\n", theme)
	}

	user.WriteString("\nSearch results from the last days:\n")
	if len(sources) == 0 {
		user.WriteString("(no search results available, rely on recent knowledge of the field)\n")
	}
	for i, s := range sources {
		fmt.Fprintf(&user, "%d. %s\n   %s\n", i+1, s.Title, s.URL)
		if s.Description != "" {
			fmt.Fprintf(&user, "   %s\n", s.Description)
		}
		if s.Age != "" {
			fmt.Fprintf(&user, "   published: %s\n", s.Age)
		}
	}

	user.WriteString("\nSelect one compelling topic from the results that is relevant to the profile owner and not in the used themes list, ")
	user.WriteString("then write the LinkedIn post. Respond with the JSON object only.")

	return sys.String(), user.String()
}

// BuildImagePrompt returns the system and user messages for the image prompt call.
func BuildImagePrompt(p *persona.Persona, postContent string) (string, string) {
	var sys strings.Builder
	sys.WriteString("Role: AI agent that generates visual prompts for LinkedIn post images\n")
	sys.WriteString("Goal: Generate a clear and effective prompt to create an image that visually complements the post content\n")
	if len(p.ImageGuidelines) > 0 {
		sys.WriteString("\nInstructions:\n")
		for _, g := range p.ImageGuidelines {
			fmt.Fprintf(&sys, "- %s\n", g)
		}
	}
	sys.WriteString("\nOutput format: descriptive prompt in English, plain text only.\n")

	user := "Generate an image prompt for this LinkedIn post:\n\n" + postContent
	return sys.String(), user
}
