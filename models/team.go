package models

import (
	"time"

	"gorm.io/gorm"
)

// TechStack holds a team's technology selections. Values are free-form
// strings, not a closed enum: the advisory chat can suggest technologies we
// have never seen, and they must round-trip unvalidated.
type TechStack struct {
	Frontend *FrontendStack `json:"frontend,omitempty"`
	Backend  *BackendStack  `json:"backend,omitempty"`
	Cloud    *CloudStack    `json:"cloud,omitempty"`
	DevOps   *DevOpsStack   `json:"devops,omitempty"`
	Optional *OptionalStack `json:"optional,omitempty"`
}

type FrontendStack struct {
	Framework       string   `json:"framework,omitempty"`
	Styling         []string `json:"styling,omitempty"`
	StateManagement string   `json:"stateManagement,omitempty"`
	BuildTool       string   `json:"buildTool,omitempty"`
}

type BackendStack struct {
	Language       string `json:"language,omitempty"`
	Framework      string `json:"framework,omitempty"`
	Database       string `json:"database,omitempty"`
	Authentication string `json:"authentication,omitempty"`
}

type CloudStack struct {
	Provider string `json:"provider,omitempty"`
	Hosting  string `json:"hosting,omitempty"`
	CDN      string `json:"cdn,omitempty"`
}

type DevOpsStack struct {
	CICD             string `json:"ci_cd,omitempty"`
	Containerization string `json:"containerization,omitempty"`
	Monitoring       string `json:"monitoring,omitempty"`
}

type OptionalStack struct {
	Payment      string `json:"payment,omitempty"`
	MessageQueue string `json:"messageQueue,omitempty"`
	Analytics    string `json:"analytics,omitempty"`
	Testing      string `json:"testing,omitempty"`
}

// Apply sets one stack field from a chat suggestion. Category and field use
// the wire names the suggestion protocol emits (e.g. "frontend" /
// "stateManagement"). Returns false for unknown category/field pairs so
// callers can count what actually landed.
func (ts *TechStack) Apply(category, field, value string) bool {
	switch category {
	case "frontend":
		if ts.Frontend == nil {
			ts.Frontend = &FrontendStack{}
		}
		switch field {
		case "framework":
			ts.Frontend.Framework = value
		case "styling":
			ts.Frontend.Styling = append(ts.Frontend.Styling, value)
		case "stateManagement":
			ts.Frontend.StateManagement = value
		case "buildTool":
			ts.Frontend.BuildTool = value
		default:
			return false
		}
	case "backend":
		if ts.Backend == nil {
			ts.Backend = &BackendStack{}
		}
		switch field {
		case "language":
			ts.Backend.Language = value
		case "framework":
			ts.Backend.Framework = value
		case "database":
			ts.Backend.Database = value
		case "authentication":
			ts.Backend.Authentication = value
		default:
			return false
		}
	case "cloud":
		if ts.Cloud == nil {
			ts.Cloud = &CloudStack{}
		}
		switch field {
		case "provider":
			ts.Cloud.Provider = value
		case "hosting":
			ts.Cloud.Hosting = value
		case "cdn":
			ts.Cloud.CDN = value
		default:
			return false
		}
	case "devops":
		if ts.DevOps == nil {
			ts.DevOps = &DevOpsStack{}
		}
		switch field {
		case "ci_cd":
			ts.DevOps.CICD = value
		case "containerization":
			ts.DevOps.Containerization = value
		case "monitoring":
			ts.DevOps.Monitoring = value
		default:
			return false
		}
	case "optional":
		if ts.Optional == nil {
			ts.Optional = &OptionalStack{}
		}
		switch field {
		case "payment":
			ts.Optional.Payment = value
		case "messageQueue":
			ts.Optional.MessageQueue = value
		case "analytics":
			ts.Optional.Analytics = value
		case "testing":
			ts.Optional.Testing = value
		default:
			return false
		}
	default:
		return false
	}
	return true
}

// Team represents a collaboration group that owns a board of tasks
type Team struct {
	gorm.Model
	Name        string     `gorm:"uniqueIndex;not null" json:"name"`
	Description string     `json:"description"`
	TechStack   *TechStack `gorm:"type:jsonb;serializer:json" json:"tech_stack,omitempty"`
	CreatedBy   uint       `gorm:"not null;index" json:"created_by"`

	// Relations
	Members []TeamMember `gorm:"foreignKey:TeamID" json:"members,omitempty"`
	Tasks   []Task       `gorm:"foreignKey:TeamID" json:"tasks,omitempty"`
	Goals   []TeamGoal   `gorm:"foreignKey:TeamID" json:"goals,omitempty"`
}

// TeamMember represents team members and their roles
type TeamMember struct {
	gorm.Model
	TeamID uint `gorm:"not null;index;uniqueIndex:idx_team_user" json:"team_id"`
	UserID uint `gorm:"not null;index;uniqueIndex:idx_team_user" json:"user_id"`

	Role     string    `gorm:"default:'member'" json:"role"` // owner, admin, member
	JoinedAt time.Time `json:"joined_at"`

	// Relations
	Team Team `json:"-"`
	User User `json:"-"`
}

// TeamInvite is a pending email invitation to join a team
type TeamInvite struct {
	gorm.Model
	TeamID    uint       `gorm:"not null;index" json:"team_id"`
	Email     string     `gorm:"not null;index" json:"email"`
	Role      string     `gorm:"default:'member'" json:"role"`
	Token     string     `gorm:"uniqueIndex;not null" json:"-"`
	InvitedBy uint       `gorm:"not null" json:"invited_by"`
	ExpiresAt time.Time  `json:"expires_at"`
	AcceptedAt *time.Time `json:"accepted_at,omitempty"`

	// Relations
	Team Team `json:"-"`
}

// TeamGoal is the free-text project objective a decomposition run started from
type TeamGoal struct {
	gorm.Model
	TeamID      uint   `gorm:"not null;index" json:"team_id"`
	GoalText    string `gorm:"not null" json:"goal_text"`
	CreatedBy   uint   `gorm:"not null" json:"created_by"`
	IsProcessed bool   `gorm:"default:false" json:"is_processed"`

	// Relations
	Team Team `json:"-"`
}
