package models

import "time"

// Role categories
const (
	CategoryLeadership    = "Leadership"
	CategoryHouseCaptains = "House Captains"
)

// Audit actions
const (
	ActionSetAdjustment  = "set_adjustment"
	ActionUpdateSettings = "update_settings"
	ActionCreateRole     = "create_role"
	ActionCreateCand     = "create_candidate"
	ActionDeleteCand     = "delete_candidate"
)

// Request types

type LoginRequest struct {
	StudentID string `json:"student_id" validate:"required,len=7,number"`
}

// role_id -> candidate_id
type SubmitBallotRequest struct {
	Selections map[string]string `json:"selections" validate:"required,min=1,dive,keys,required,endkeys,required"`
}

// Value is a pointer so an omitted value is rejected instead of read as 0
type SetAdjustmentRequest struct {
	Value *int `json:"value" validate:"required"`
}

type UpdateSettingsRequest struct {
	VotingOpen         *bool      `json:"voting_open,omitempty"`
	ResultsVisible     *bool      `json:"results_visible,omitempty"`
	ResultsReleaseDate *time.Time `json:"results_release_date,omitempty"`
	ClearReleaseDate   bool       `json:"clear_release_date,omitempty"`
}

type CreateRoleRequest struct {
	Title    string `json:"title" validate:"required,max=100"`
	Category string `json:"category" validate:"required,oneof='Leadership' 'House Captains'"`
}

type CreateCandidateRequest struct {
	RoleID      string `json:"role_id" validate:"required"`
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=500"`
}

// Response types

type LoginResponse struct {
	VoterToken string   `json:"voter_token"`
	VotedRoles []string `json:"voted_roles"`
}

type SubmitBallotResponse struct {
	VoteIDs []string `json:"vote_ids"`
	Message string   `json:"message"`
}

type ElectionResponse struct {
	Roles    []RoleWithCandidates `json:"roles"`
	Settings Settings             `json:"settings"`
}

type RoleWithCandidates struct {
	Role
	Candidates []CandidateSummary `json:"candidates"`
}

// CandidateSummary is the public view of a candidate, without adjustments
type CandidateSummary struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
}

// ResultsResponse is the gated results payload. Roles is nil when withheld.
type ResultsResponse struct {
	Disclosed   bool                   `json:"disclosed"`
	ReleaseDate *time.Time             `json:"release_date,omitempty"`
	ReleaseIn   string                 `json:"release_in,omitempty"`
	Roles       []AggregatedRoleResult `json:"roles,omitempty"`
}

type AdjustmentResponse struct {
	CandidateID      string `json:"candidate_id"`
	ManualAdjustment int    `json:"manual_adjustment"`
}

type CreatedResponse struct {
	ID string `json:"id"`
}

// Domain types

type Role struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Category string `json:"category"`
}

type Candidate struct {
	ID               string  `json:"id"`
	Name             string  `json:"name"`
	Description      *string `json:"description,omitempty"`
	RoleID           string  `json:"role_id"`
	ManualAdjustment int     `json:"manual_adjustment"`
}

type Vote struct {
	ID          string    `json:"id"`
	CandidateID string    `json:"candidate_id"`
	RoleID      string    `json:"role_id"`
	VoterToken  string    `json:"-"` // Never expose in JSON
	CreatedAt   time.Time `json:"created_at"`
}

type Settings struct {
	VotingOpen         bool       `json:"voting_open"`
	ResultsVisible     bool       `json:"results_visible"`
	ResultsReleaseDate *time.Time `json:"results_release_date,omitempty"`
}

// DefaultSettings is used when the settings row is missing: voting stays
// open and results stay hidden.
func DefaultSettings() Settings {
	return Settings{
		VotingOpen:     true,
		ResultsVisible: false,
	}
}

type AuditEntry struct {
	ID        string    `json:"id"`
	Actor     string    `json:"actor"`
	Action    string    `json:"action"`
	Target    string    `json:"target"`
	Detail    string    `json:"detail"`
	CreatedAt time.Time `json:"created_at"`
}

// Result types

type AggregatedCandidateResult struct {
	CandidateID    string `json:"candidate_id"`
	Name           string `json:"name"`
	EffectiveVotes int    `json:"effective_votes"`
}

type AggregatedRoleResult struct {
	RoleID     string                      `json:"role_id"`
	Title      *string                     `json:"title"` // nil when the role is unknown
	Candidates []AggregatedCandidateResult `json:"candidates"`
	TotalVotes int                         `json:"total_votes"`
}

// Live tally for admins

type RecentVote struct {
	ID            string    `json:"id"`
	CandidateName string    `json:"candidate_name"`
	RoleName      string    `json:"role_name"`
	Timestamp     time.Time `json:"timestamp"`
}

type LiveTally struct {
	TotalVotes  int                       `json:"total_votes"`
	VotesByRole map[string]map[string]int `json:"votes_by_role"`
	RecentVotes []RecentVote              `json:"recent_votes"`
}

// Error response

type ErrorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// LiveUpdate is one publication of the change feed. Live is only delivered
// to admin clients; Results is nil when the snapshot could not be loaded.
type LiveUpdate struct {
	Seq       uint64           `json:"seq"`
	Available bool             `json:"available"`
	Results   *ResultsResponse `json:"results,omitempty"`
	Live      *LiveTally       `json:"live,omitempty"`
	At        time.Time        `json:"at"`
}
