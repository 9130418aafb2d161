package store

import (
	"context"
	"errors"
	"time"

	"github.com/jmoiron/sqlx/types"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a write violates a uniqueness constraint,
	// such as a second started attempt for the same learner.
	ErrConflict = errors.New("conflict")
)

// AttemptType determines scoring and feedback-reveal policy.
type AttemptType string

const (
	AttemptLevelAssessment AttemptType = "level_assessment"
	AttemptPractice        AttemptType = "practice"
	AttemptSimulation      AttemptType = "simulation"
	AttemptTraditional     AttemptType = "traditional"
)

// AllAttemptTypes returns every attempt type in display order.
func AllAttemptTypes() []AttemptType {
	return []AttemptType{AttemptLevelAssessment, AttemptPractice, AttemptSimulation, AttemptTraditional}
}

// Valid reports whether t is a known attempt type.
func (t AttemptType) Valid() bool {
	switch t {
	case AttemptLevelAssessment, AttemptPractice, AttemptSimulation, AttemptTraditional:
		return true
	}
	return false
}

// AttemptStatus is the lifecycle state of a test attempt. Every status other
// than StatusStarted is terminal.
type AttemptStatus string

const (
	StatusStarted   AttemptStatus = "started"
	StatusCompleted AttemptStatus = "completed"
	StatusAbandoned AttemptStatus = "abandoned"
	StatusError     AttemptStatus = "error"
)

// AnswerMode tags a recorded answer with the context it was given in.
type AnswerMode string

const (
	ModeLevelAssessment AnswerMode = "level_assessment"
	ModePractice        AnswerMode = "practice"
	ModeSimulation      AnswerMode = "simulation"
	ModeTraditional     AnswerMode = "traditional"
	ModeEmergency       AnswerMode = "emergency"
)

// ModeFor maps an attempt type to the answer mode it records.
func ModeFor(t AttemptType) AnswerMode {
	return AnswerMode(t)
}

// Category is the major scoring area a section belongs to.
type Category string

const (
	CategoryVerbal       Category = "verbal"
	CategoryQuantitative Category = "quantitative"
	CategoryOther        Category = "other"
)

// Section is a top-level area of the test, e.g. "Verbal Reasoning".
type Section struct {
	ID       string   `db:"id" json:"id"`
	Slug     string   `db:"slug" json:"slug"`
	Name     string   `db:"name" json:"name"`
	Category Category `db:"category" json:"category"`
}

// Subsection groups skills and questions inside a section.
type Subsection struct {
	ID          string `db:"id" json:"id"`
	SectionID   string `db:"section_id" json:"section_id"`
	Slug        string `db:"slug" json:"slug"`
	Name        string `db:"name" json:"name"`
	Description string `db:"description" json:"description"`
}

// Skill is the unit proficiency is tracked against.
type Skill struct {
	ID           string `db:"id" json:"id"`
	SubsectionID string `db:"subsection_id" json:"subsection_id"`
	Slug         string `db:"slug" json:"slug"`
	Name         string `db:"name" json:"name"`
}

// Question is a catalog question. SkillID is nil for questions that are not
// tagged with a skill.
type Question struct {
	ID            string     `db:"id" json:"id"`
	SubsectionID  string     `db:"subsection_id" json:"subsection_id"`
	SkillID       *string    `db:"skill_id" json:"skill_id,omitempty"`
	Difficulty    int        `db:"difficulty" json:"difficulty"`
	Prompt        string     `db:"prompt" json:"prompt"`
	Choices       StringList `db:"choices" json:"choices"`
	CorrectChoice string     `db:"correct_choice" json:"correct_choice"`
	Explanation   string     `db:"explanation" json:"explanation"`
	Active        bool       `db:"active" json:"active"`
}

// QuestionDetail is a question joined with its placement in the catalog.
type QuestionDetail struct {
	Question
	SubsectionSlug string   `db:"subsection_slug"`
	SubsectionName string   `db:"subsection_name"`
	SectionID      string   `db:"section_id"`
	SectionSlug    string   `db:"section_slug"`
	SectionName    string   `db:"section_name"`
	Category       Category `db:"category"`
	SkillSlug      *string  `db:"skill_slug"`
}

// SkillDetail is a skill joined with its subsection and section.
type SkillDetail struct {
	Skill
	SubsectionSlug        string `db:"subsection_slug"`
	SubsectionName        string `db:"subsection_name"`
	SubsectionDescription string `db:"subsection_description"`
	SectionSlug           string `db:"section_slug"`
}

// Candidate is the minimal projection the selector samples from.
type Candidate struct {
	ID      string  `db:"id"`
	SkillID *string `db:"skill_id"`
}

// QuestionFilter narrows the active-question pool. Subsection and skill slugs
// are combined with OR: a question passes when it matches either list.
type QuestionFilter struct {
	SubsectionSlugs []string
	SkillSlugs      []string
	StarredBy       string // learner id; empty disables the starred clause
}

// Profile holds the per-learner fields this engine reads and writes.
type Profile struct {
	UserID            string    `db:"user_id"`
	Tier              string    `db:"tier"`
	VerbalLevel       *float64  `db:"verbal_level"`
	QuantitativeLevel *float64  `db:"quantitative_level"`
	LevelDetermined   bool      `db:"level_determined"`
	Points            int64     `db:"points"`
	StreakDays        int       `db:"streak_days"`
	LastActiveOn      string    `db:"last_active_on"` // YYYY-MM-DD, UTC
	UpdatedAt         time.Time `db:"updated_at"`
}

// Attempt is a persisted test attempt.
type Attempt struct {
	ID                string             `db:"id"`
	UserID            string             `db:"user_id"`
	Type              AttemptType        `db:"attempt_type"`
	Status            AttemptStatus      `db:"status"`
	QuestionIDs       StringList         `db:"question_ids"`
	Snapshot          types.JSONText     `db:"configuration_snapshot"`
	OverallScore      *float64           `db:"overall_score"`
	VerbalScore       *float64           `db:"verbal_score"`
	QuantitativeScore *float64           `db:"quantitative_score"`
	ResultsSummary    types.NullJSONText `db:"results_summary"`
	StartedAt         time.Time          `db:"started_at"`
	EndedAt           *time.Time         `db:"ended_at"`
}

// Contains reports whether questionID is part of the attempt's scope.
func (a *Attempt) Contains(questionID string) bool {
	for _, id := range a.QuestionIDs {
		if id == questionID {
			return true
		}
	}
	return false
}

// AttemptScores is written together with the terminal status on completion.
type AttemptScores struct {
	Overall        *float64
	Verbal         *float64
	Quantitative   *float64
	ResultsSummary []byte
}

// QuestionAttempt is one recorded answer.
type QuestionAttempt struct {
	ID                  string     `db:"id"`
	UserID              string     `db:"user_id"`
	TestAttemptID       *string    `db:"test_attempt_id"`
	EmergencySessionID  *string    `db:"emergency_session_id"`
	QuestionID          string     `db:"question_id"`
	SelectedChoice      string     `db:"selected_choice"`
	IsCorrect           bool       `db:"is_correct"`
	ElapsedMs           *int64     `db:"elapsed_ms"`
	Mode                AnswerMode `db:"mode"`
	HintUsed            bool       `db:"hint_used"`
	EliminationUsed     bool       `db:"elimination_used"`
	AnswerRevealed      bool       `db:"answer_revealed"`
	ExplanationRevealed bool       `db:"explanation_revealed"`
	AnsweredAt          time.Time  `db:"answered_at"`
}

// ScoredAnswer is a recorded answer joined with the catalog fields scoring
// needs.
type ScoredAnswer struct {
	QuestionID     string   `db:"question_id"`
	IsCorrect      bool     `db:"is_correct"`
	SubsectionSlug string   `db:"subsection_slug"`
	SubsectionName string   `db:"subsection_name"`
	SectionSlug    string   `db:"section_slug"`
	SectionName    string   `db:"section_name"`
	Category       Category `db:"category"`
}

// SkillProficiency is the long-lived per-(learner, skill) estimate.
type SkillProficiency struct {
	UserID           string    `db:"user_id"`
	SkillID          string    `db:"skill_id"`
	AttemptsCount    int       `db:"attempts_count"`
	CorrectCount     int       `db:"correct_count"`
	ProficiencyScore float64   `db:"proficiency_score"`
	UpdatedAt        time.Time `db:"updated_at"`
}

// ProficiencyDetail is a proficiency row joined with its skill placement.
type ProficiencyDetail struct {
	SkillProficiency
	SkillSlug    string `db:"skill_slug"`
	SkillName    string `db:"skill_name"`
	SubsectionID string `db:"subsection_id"`
	SectionSlug  string `db:"section_slug"`
}

// EmergencySession is a persisted emergency study plan. It is active while
// EndedAt is nil.
type EmergencySession struct {
	ID             string         `db:"id"`
	UserID         string         `db:"user_id"`
	Reason         string         `db:"reason"`
	AvailableHours *float64       `db:"available_hours"`
	Plan           types.JSONText `db:"suggested_plan"`
	StartedAt      time.Time      `db:"started_at"`
	EndedAt        *time.Time     `db:"ended_at"`
}

// RewardEvent is one row of the points and badge ledger.
type RewardEvent struct {
	ID        string    `db:"id"`
	UserID    string    `db:"user_id"`
	Kind      string    `db:"kind"`
	Points    int       `db:"points"`
	Reason    string    `db:"reason"`
	RefID     string    `db:"ref_id"`
	CreatedAt time.Time `db:"created_at"`
}

// CatalogRepo provides read access to the content catalog plus the upserts
// used by catalog import.
type CatalogRepo interface {
	UpsertSection(ctx context.Context, s Section) error
	UpsertSubsection(ctx context.Context, s Subsection) error
	UpsertSkill(ctx context.Context, s Skill) error
	UpsertQuestion(ctx context.Context, q Question) error

	ListSections(ctx context.Context) ([]Section, error)
	// ListSkills returns skills ordered by slug, restricted to the given
	// section slugs when any are passed.
	ListSkills(ctx context.Context, sectionSlugs []string) ([]SkillDetail, error)
	SubsectionsByID(ctx context.Context, ids []string) ([]Subsection, error)
	// QuestionDetail returns ErrNotFound for unknown ids.
	QuestionDetail(ctx context.Context, id string) (*QuestionDetail, error)
	QuestionDetails(ctx context.Context, ids []string) ([]QuestionDetail, error)
	// Candidates returns the active questions passing f, ordered by id.
	Candidates(ctx context.Context, f QuestionFilter) ([]Candidate, error)

	Star(ctx context.Context, userID, questionID string, at time.Time) error
	Unstar(ctx context.Context, userID, questionID string) error
}

// AttemptRepo manages test attempts. Every lookup is scoped by learner.
type AttemptRepo interface {
	// CreateAttempt returns ErrConflict when the learner already has a
	// started attempt.
	CreateAttempt(ctx context.Context, a *Attempt) error
	GetAttempt(ctx context.Context, userID, id string) (*Attempt, error)
	// LockAttempt is GetAttempt holding a row lock until the transaction ends.
	LockAttempt(ctx context.Context, userID, id string) (*Attempt, error)
	// ActiveAttempt returns the started attempt, or nil if there is none.
	ActiveAttempt(ctx context.Context, userID string) (*Attempt, error)
	// FinishAttempt moves a started attempt to a terminal status. scores may
	// be nil. It returns ErrConflict if the attempt is no longer started.
	FinishAttempt(ctx context.Context, id string, status AttemptStatus, endedAt time.Time, scores *AttemptScores) error
	CountAttempts(ctx context.Context, userID string, t AttemptType) (int, error)
	CountAttemptsSince(ctx context.Context, userID string, since time.Time) (int, error)
	CountCompleted(ctx context.Context, userID string) (int, error)
	ListAttempts(ctx context.Context, userID string, limit int) ([]Attempt, error)
}

// AnswerRepo records answers.
type AnswerRepo interface {
	// UpsertAnswer inserts an answer, overwriting an earlier answer to the
	// same question within the same test attempt.
	UpsertAnswer(ctx context.Context, qa *QuestionAttempt) error
	ScoredAnswers(ctx context.Context, attemptID string) ([]ScoredAnswer, error)
	SessionQuestionIDs(ctx context.Context, sessionID string) ([]string, error)
}

// ProficiencyRepo persists per-skill proficiency.
type ProficiencyRepo interface {
	// LockProficiency returns the row under a lock, or nil if none exists.
	LockProficiency(ctx context.Context, userID, skillID string) (*SkillProficiency, error)
	SaveProficiency(ctx context.Context, p *SkillProficiency) error
	ListProficiency(ctx context.Context, userID string) ([]ProficiencyDetail, error)
}

// ProfileRepo persists learner profiles.
type ProfileRepo interface {
	// GetProfile returns nil when the learner has no profile yet.
	GetProfile(ctx context.Context, userID string) (*Profile, error)
	// LockProfile creates the profile with defaultTier if needed and returns
	// it under an exclusive row lock held until the transaction ends.
	LockProfile(ctx context.Context, userID, defaultTier string) (*Profile, error)
	SaveProfile(ctx context.Context, p *Profile) error
}

// EmergencyRepo persists emergency sessions.
type EmergencyRepo interface {
	CreateSession(ctx context.Context, s *EmergencySession) error
	GetSession(ctx context.Context, userID, id string) (*EmergencySession, error)
	// LockSession is GetSession holding a row lock until the transaction ends.
	LockSession(ctx context.Context, userID, id string) (*EmergencySession, error)
	// ActiveSession returns nil when no session is active.
	ActiveSession(ctx context.Context, userID string) (*EmergencySession, error)
	EndSession(ctx context.Context, id string, endedAt time.Time) error
}

// RewardRepo persists the reward ledger.
type RewardRepo interface {
	// AppendReward returns false without error when an event with the same
	// (user, kind, ref) already exists.
	AppendReward(ctx context.Context, e *RewardEvent) (bool, error)
	ListRewards(ctx context.Context, userID string, limit int) ([]RewardEvent, error)
}

// Repos bundles every repository over one connection or transaction.
type Repos interface {
	CatalogRepo
	AttemptRepo
	AnswerRepo
	ProficiencyRepo
	ProfileRepo
	EmergencyRepo
	RewardRepo
}

// TxRepos is a Repos that can also open a transaction.
type TxRepos interface {
	Repos
	InTx(ctx context.Context, fn func(Repos) error) error
}
