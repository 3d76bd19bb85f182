package ai

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// TechnicalTags is the fixed taxonomy a task can be labeled with. Model
// output is filtered strictly against this list; unknown labels are
// discarded, never normalized.
var TechnicalTags = []string{
	"Frontend",
	"Backend",
	"Database",
	"Authentication",
	"DevOps",
	"Mobile",
	"Testing",
	"Design",
	"Security",
	"Data Science",
	"Machine Learning",
	"Infrastructure",
	"API",
	"UI/UX",
}

// codebaseContext grounds the tagging prompt in this application's own
// technical areas. It is prompt context only, never stored.
const codebaseContext = `
Our application is a Go web backend with the following technical stack and areas:

FRONTEND:
- Client applications consuming the JSON API
- Components: authentication forms, Kanban boards, task modals, team management, calendar views
- UI/UX features: drag and drop, responsive design

BACKEND:
- Fiber HTTP handlers and middleware
- Business logic for task management, team collaboration and AI-driven decomposition
- API endpoints: tasks, teams, team members, subtasks, generation, allocation

DATABASE:
- PostgreSQL via GORM
- Tables: tasks, teams, team_members, subtasks, team_goals, assignments
- Schema management and migrations

AUTHENTICATION:
- JWT bearer tokens with refresh rotation
- Email/password authentication, protected routes and API endpoints

DEVOPS & INFRASTRUCTURE:
- Deployment configuration, environment variable management, build processes

INTEGRATIONS:
- Generative model service for task decomposition and tagging
- Redis for rate limiting

TESTING & QUALITY:
- Unit tests, error handling and validation

Based on this context, categorize technical tasks appropriately.
`

// keywordCategory pairs a tag with the word pattern that triggers it in the
// fallback path. Checked in this fixed order, first match per category.
type keywordCategory struct {
	tag     string
	pattern *regexp.Regexp
}

var keywordCategories = []keywordCategory{
	{"Frontend", regexp.MustCompile(`\b(component|react|ui|ux|frontend|client|interface|design|style|css|tailwind|responsive|form|modal|page|layout)\b`)},
	{"Backend", regexp.MustCompile(`\b(api|endpoint|server|backend|route|middleware|logic|service|controller)\b`)},
	{"Database", regexp.MustCompile(`\b(database|db|table|schema|query|migration|supabase|postgres|sql|index)\b`)},
	{"Authentication", regexp.MustCompile(`\b(auth|login|register|oauth|token|session|user|sign|password|google|github)\b`)},
	{"DevOps", regexp.MustCompile(`\b(deploy|deployment|infrastructure|docker|ci|cd|build|environment|config|setup)\b`)},
	{"Testing", regexp.MustCompile(`\b(test|testing|unit|integration|spec|jest|cypress|qa|quality)\b`)},
	{"Security", regexp.MustCompile(`\b(security|secure|encryption|validation|sanitize|xss|csrf|vulnerability)\b`)},
	{"Design", regexp.MustCompile(`\b(design|ui|ux|mockup|prototype|wireframe|visual|graphic|theme)\b`)},
	{"API", regexp.MustCompile(`\b(api|rest|graphql|endpoint|request|response|webhook|integration)\b`)},
}

// TagPrompt builds the tag-inference instruction for a single task.
func TagPrompt(title, description string) string {
	if description == "" {
		description = "No description provided"
	}
	return fmt.Sprintf(`
You are an expert technical project manager analyzing a task to automatically assign relevant technical tags.

TASK TO ANALYZE:
Title: "%s"
Description: "%s"

AVAILABLE TAGS: %s

CODEBASE CONTEXT:
%s

INSTRUCTIONS:
1. Analyze the task title and description
2. Determine which technical areas this task belongs to based on the codebase context
3. Assign 1-3 most relevant tags from the available tags list
4. Consider the technical implementation required, not just keywords

EXAMPLES:
- "Implement user login API" -> ["Backend", "Authentication", "API"]
- "Create task card component" -> ["Frontend", "UI/UX"]
- "Set up database tables for teams" -> ["Database", "Backend"]
- "Deploy application to production" -> ["DevOps", "Infrastructure"]
- "Write unit tests for API endpoints" -> ["Testing", "Backend"]

Return ONLY a JSON array of tags, no additional text:
["tag1", "tag2", "tag3"]
`, title, description, strings.Join(TechnicalTags, ", "), codebaseContext)
}

// InferTags classifies a task against the taxonomy. The model path is tried
// first; a failed call or unparseable response falls back to keyword
// matching. The result always has between 1 and 3 tags.
func InferTags(ctx context.Context, gen Generator, title, description string) []string {
	text, err := gen.Generate(ctx, TagPrompt(title, description))
	if err != nil {
		return TagByKeywords(title, description)
	}

	var tags []string
	if err := DecodeArray(text, &tags); err != nil {
		return TagByKeywords(title, description)
	}

	tags = filterAllowed(tags)
	if len(tags) == 0 {
		return []string{"Backend"}
	}
	if len(tags) > 3 {
		tags = tags[:3]
	}
	return tags
}

// TagByKeywords is the model-free fallback: whole-word matching over the
// lowercased title+description across the fixed category order.
func TagByKeywords(title, description string) []string {
	text := strings.ToLower(title + " " + description)

	var tags []string
	for _, cat := range keywordCategories {
		if cat.pattern.MatchString(text) {
			tags = append(tags, cat.tag)
		}
	}

	if len(tags) == 0 {
		tags = []string{"Backend"}
	}
	if len(tags) > 3 {
		tags = tags[:3]
	}
	return tags
}

func filterAllowed(tags []string) []string {
	allowed := make(map[string]bool, len(TechnicalTags))
	for _, t := range TechnicalTags {
		allowed[t] = true
	}
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if allowed[t] {
			out = append(out, t)
		}
	}
	return out
}
