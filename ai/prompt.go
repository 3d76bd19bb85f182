package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	"taskforge/models"
)

// techStackNames maps stack keys to their display names. AI-suggested
// technologies that are not in this list fall through to Humanize.
var techStackNames = map[string]string{
	// Frontend frameworks
	"react":  "React",
	"nextjs": "Next.js",
	"vue":    "Vue.js",
	"angular": "Angular",
	"svelte": "Svelte",
	"gatsby": "Gatsby",

	// Frontend styling
	"tailwind":          "Tailwind CSS",
	"shadcn":            "shadcn/ui",
	"mui":               "Material-UI",
	"chakra":            "Chakra UI",
	"styled-components": "Styled Components",
	"sass":              "Sass/SCSS",
	"emotion":           "Emotion",

	// State management
	"redux":   "Redux Toolkit",
	"zustand": "Zustand",
	"context": "React Context",
	"recoil":  "Recoil",
	"jotai":   "Jotai",

	// Build tools
	"vite":    "Vite",
	"webpack": "Webpack",
	"parcel":  "Parcel",
	"rollup":  "Rollup",

	// Backend languages
	"typescript": "TypeScript/Node.js",
	"python":     "Python",
	"java":       "Java",
	"csharp":     "C#/.NET",
	"go":         "Go",
	"rust":       "Rust",

	// Backend frameworks
	"express":     "Express.js",
	"fastify":     "Fastify",
	"nestjs":      "NestJS",
	"koa":         "Koa.js",
	"hapi":        "Hapi.js",
	"django":      "Django",
	"fastapi":     "FastAPI",
	"flask":       "Flask",
	"spring":      "Spring Boot",
	"quarkus":     "Quarkus",
	"micronaut":   "Micronaut",
	"aspnet":      "ASP.NET Core",
	"minimal-api": "Minimal APIs",
	"gin":         "Gin",
	"echo":        "Echo",
	"fiber":       "Fiber",
	"actix":       "Actix Web",
	"warp":        "Warp",
	"rocket":      "Rocket",

	// Databases
	"postgresql": "PostgreSQL",
	"mysql":      "MySQL",
	"mongodb":    "MongoDB",
	"redis":      "Redis",
	"supabase":   "Supabase",
	"firebase":   "Firebase Firestore",
	"dynamodb":   "DynamoDB",

	// Authentication
	"supabase-auth": "Supabase Auth",
	"firebase-auth": "Firebase Auth",
	"auth0":         "Auth0",
	"jwt":           "JWT + Custom",
	"passport":      "Passport.js",

	// Cloud providers
	"vercel":  "Vercel",
	"netlify": "Netlify",
	"aws":     "Amazon Web Services",
	"gcp":     "Google Cloud Platform",
	"azure":   "Microsoft Azure",
	"railway": "Railway",
	"render":  "Render",

	// Hosting types
	"static":     "Static Hosting",
	"serverless": "Serverless Functions",
	"containers": "Container Hosting",
	"vps":        "VPS/Dedicated",

	// CDN
	"cloudflare":     "Cloudflare",
	"aws-cloudfront": "AWS CloudFront",
	"vercel-edge":    "Vercel Edge Network",

	// Payment
	"stripe":   "Stripe",
	"paypal":   "PayPal",
	"square":   "Square",
	"razorpay": "Razorpay",

	// Message queues
	"redis-queue": "Redis Queue",
	"rabbitmq":    "RabbitMQ",
	"aws-sqs":     "AWS SQS",
	"kafka":       "Apache Kafka",

	// Analytics
	"google-analytics": "Google Analytics",
	"mixpanel":         "Mixpanel",
	"amplitude":        "Amplitude",

	// Testing
	"jest":       "Jest",
	"cypress":    "Cypress",
	"playwright": "Playwright",
	"vitest":     "Vitest",
}

// DisplayName returns the predefined display name for a stack key, or a
// humanized form for keys we have never seen.
func DisplayName(key string) string {
	if name, ok := techStackNames[key]; ok {
		return name
	}
	return Humanize(key)
}

// Humanize splits a key on hyphens, underscores and spaces and title-cases
// each token, so any AI-suggested technology name still renders legibly.
func Humanize(key string) string {
	words := strings.FieldsFunc(key, func(r rune) bool {
		return r == '-' || r == '_' || r == ' '
	})
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}

func displayNames(keys []string) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = DisplayName(k)
	}
	return out
}

// TechStackContext renders the team's stack selections as labeled lines
// grouped into sections. Categories with no populated fields are skipped
// entirely; an empty stack yields an empty string.
func TechStackContext(stack *models.TechStack) string {
	if stack == nil {
		return ""
	}

	var sections []string

	if fe := stack.Frontend; fe != nil {
		var items []string
		if fe.Framework != "" {
			items = append(items, "Framework: "+DisplayName(fe.Framework))
		}
		if len(fe.Styling) > 0 {
			items = append(items, "Styling: "+strings.Join(displayNames(fe.Styling), ", "))
		}
		if fe.StateManagement != "" {
			items = append(items, "State Management: "+DisplayName(fe.StateManagement))
		}
		if fe.BuildTool != "" {
			items = append(items, "Build Tool: "+DisplayName(fe.BuildTool))
		}
		if len(items) > 0 {
			sections = append(sections, "FRONTEND:\n- "+strings.Join(items, "\n- "))
		}
	}

	if be := stack.Backend; be != nil {
		var items []string
		if be.Language != "" {
			items = append(items, "Language: "+DisplayName(be.Language))
		}
		if be.Framework != "" {
			items = append(items, "Framework: "+DisplayName(be.Framework))
		}
		if be.Database != "" {
			items = append(items, "Database: "+DisplayName(be.Database))
		}
		if be.Authentication != "" {
			items = append(items, "Authentication: "+DisplayName(be.Authentication))
		}
		if len(items) > 0 {
			sections = append(sections, "BACKEND:\n- "+strings.Join(items, "\n- "))
		}
	}

	if stack.Cloud != nil || stack.DevOps != nil {
		var items []string
		if cl := stack.Cloud; cl != nil {
			if cl.Provider != "" {
				items = append(items, "Provider: "+DisplayName(cl.Provider))
			}
			if cl.Hosting != "" {
				items = append(items, "Hosting: "+DisplayName(cl.Hosting))
			}
			if cl.CDN != "" {
				items = append(items, "CDN: "+DisplayName(cl.CDN))
			}
		}
		if do := stack.DevOps; do != nil {
			if do.CICD != "" {
				items = append(items, "CI/CD: "+DisplayName(do.CICD))
			}
			if do.Containerization != "" {
				items = append(items, "Containerization: "+DisplayName(do.Containerization))
			}
			if do.Monitoring != "" {
				items = append(items, "Monitoring: "+DisplayName(do.Monitoring))
			}
		}
		if len(items) > 0 {
			sections = append(sections, "CLOUD & DEVOPS:\n- "+strings.Join(items, "\n- "))
		}
	}

	if opt := stack.Optional; opt != nil {
		var items []string
		if opt.Payment != "" {
			items = append(items, "Payment: "+DisplayName(opt.Payment))
		}
		if opt.MessageQueue != "" {
			items = append(items, "Message Queue: "+DisplayName(opt.MessageQueue))
		}
		if opt.Analytics != "" {
			items = append(items, "Analytics: "+DisplayName(opt.Analytics))
		}
		if opt.Testing != "" {
			items = append(items, "Testing: "+DisplayName(opt.Testing))
		}
		if len(items) > 0 {
			sections = append(sections, "ADDITIONAL SERVICES:\n- "+strings.Join(items, "\n- "))
		}
	}

	if len(sections) == 0 {
		return ""
	}

	return fmt.Sprintf(`

IMPORTANT: This team is using the following technology stack:

%s

GENERATE TASKS SPECIFICALLY FOR THIS TECH STACK. Use the exact technologies mentioned above in your task descriptions and make them highly specific to the chosen stack.
Tailor each task title and description to leverage the specific capabilities and patterns of these technologies.`,
		strings.Join(sections, "\n\n"))
}

// TaskGenerationPrompt builds the decomposition instruction sent to the
// model for a team goal. Pure string construction, deterministic for given
// inputs.
func TaskGenerationPrompt(goal string, stack *models.TechStack) string {
	return fmt.Sprintf(`
You are an expert technical project manager. A development team wants to achieve this goal: "%s"
%s

Produce a SEQUENCED list of a reasonable number of TECHNICAL tasks (choose an appropriate count based on the goal's complexity — neither too many nor too few; typically 8-18). Do NOT force a fixed number if it would create artificial splitting or over-broad aggregation.

CRITICAL REQUIREMENT - JUSTIFICATION FOR EVERYTHING:
Every single task you create MUST have a clear, logical reason and purpose behind it:
- Each task directly contributes to achieving the stated goal with a specific purpose
- Every task is necessary and not just "nice to have"
- The order and dependencies between tasks are logically justified based on technical requirements
- Each task description should briefly indicate WHY this task is needed to achieve the overall goal

Core requirements:

- Tasks must be technical (code, infrastructure, databases, APIs, CI/CD, tests, deployments, integrations).
- Every task must be TEAM-SCOPED and assigned to EXACTLY ONE primary team (e.g., "Backend Team", "Frontend Team", "DevOps Team", "Data Team", "QA Team"). No task should list multiple teams as co-owners.
- Tasks must be MUTUALLY EXCLUSIVE (no overlapping scopes) and collectively cover the path to the goal.
- Keep each task GENERAL at the team level: high enough to allow the team to create detailed subtasks, but not so broad that it spans multiple lifecycle phases.
- Order tasks logically from foundational setup to final deployment, respecting dependencies and natural development flow.
- Exclude non-technical items (meetings, stakeholder reviews, documentation-only tasks).
- Favor deliverables with clear artifacts: schemas, migrations, API endpoints, service modules, infrastructure provisioning, CI/CD workflows, test suites, deployment configurations.

Output format (must follow exactly):
Return ONLY a JSON array of task objects (no extra text). Each task object must include:
- "title": short technical title including relevant stack names and the team in parentheses
- "description": 1-2 sentence technical description that explains WHY this task is essential for the goal; mention the intended team and key stack elements
- "estimated_days": integer 1-15 representing effort (number)

Example (adapt to the provided tech stack):
[
  {
    "title": "Initialize PostgreSQL schema and data models (Backend Team)",
    "description": "Backend Team defines the foundational database schema for core domain entities because all application data storage and relationships must be established before any API or frontend development can begin.",
    "estimated_days": 3
  }
]

Return only the JSON array - no additional explanation or text.
`, goal, TechStackContext(stack))
}

// SubtaskGenerationPrompt builds the instruction for breaking one task into
// sequentially ordered subtasks.
func SubtaskGenerationPrompt(title, description string) string {
	if description == "" {
		description = "No description provided"
	}
	return fmt.Sprintf(`
You are an expert project manager. Break down this task into specific, actionable subtasks that follow a LOGICAL SEQUENTIAL ORDER:

Task Title: "%s"
Task Description: "%s"

CRITICAL REQUIREMENTS:

1. SEQUENTIAL ORDER: Create subtasks that follow a logical step-by-step progression where each subtask naturally leads to the next. The first subtask in your array should be the first thing that needs to be done, and the last subtask should be the final step.

2. JUSTIFICATION FOR EVERY SUBTASK: Each subtask directly contributes to completing the main task with a specific purpose, and its description should briefly indicate WHY it is needed.

Each subtask should be:
- Small, specific, and actionable
- Focused on one clear deliverable or action
- Something that can be completed and checked off
- Structured so that deadlines can be assigned sequentially (first subtask has earliest deadline, last subtask has latest deadline)

Generate as many or as few subtasks as needed based on the complexity and scope of the main task.

Format your response as a JSON array of subtask objects, where each subtask has:
- title: A clear, concise subtask title (keep it under 60 characters)
- description: A brief description explaining WHAT needs to be accomplished and WHY it's necessary for the main task (1-2 sentences with reasoning)

Return only the JSON array, no additional text.
`, title, description)
}

// ChatMessage is one turn of the advisory stack chat.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatPrompt builds the advisory chat prompt: system instruction, current
// stack selections, prior conversation and the new user message.
func ChatPrompt(message string, conversation []ChatMessage, currentStack *models.TechStack, forceSuggestions bool) string {
	stackJSON := "{}"
	if currentStack != nil {
		if b, err := json.MarshalIndent(currentStack, "", "  "); err == nil {
			stackJSON = string(b)
		}
	}

	forced := ""
	if forceSuggestions {
		forced = `IMPORTANT: The user has enabled "Force stack suggestions" mode. You MUST provide specific tech stack recommendations in EVERY response, regardless of the user's question. Always end your response with a SUGGESTIONS array.

`
	}

	var sb strings.Builder
	sb.WriteString("You are a friendly, expert tech stack consultant helping users choose the best technologies for their project.\n\n")
	sb.WriteString("Current user's stack selections: " + stackJSON + "\n\n")
	sb.WriteString(forced)
	sb.WriteString(`Instructions:
- Ask clarifying questions early.
- Provide explanations with trade-offs.
- End with a SUGGESTIONS array (plain text, JS-like) exactly in the format:
SUGGESTIONS: [ {category: 'frontend', field: 'framework', value: 'nextjs', name: 'Next.js', rationale: 'Reason'}, ... ]
- Include a full stack (frontend framework + styling, backend language + database, cloud provider).
- Do not modify stack directly; only suggest.
- Keep tone helpful & concise.`)

	sb.WriteString("\n\nPrevious conversation:\n")
	for _, m := range conversation {
		role := "Assistant"
		if m.Role == "user" {
			role = "User"
		}
		sb.WriteString(role + ": " + m.Content + "\n")
	}
	sb.WriteString("\nUser: " + message)
	return sb.String()
}
