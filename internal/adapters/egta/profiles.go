package egta

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/egta-tools/egta-cli/internal/domain"
)

// SymmetryGroup is the wire form of one (role, strategy, count) record.
type SymmetryGroup struct {
	ID       int64  `json:"id"`
	Role     string `json:"role"`
	Strategy string `json:"strategy"`
	Count    int    `json:"count"`
}

// SymmetryGroupPayoff extends a symmetry group with aggregated payoff data.
type SymmetryGroupPayoff struct {
	SymmetryGroup
	Payoff   float64 `json:"payoff"`
	PayoffSD float64 `json:"payoff_sd"`
}

// ProfileInfo is the structure-granularity profile snapshot, also returned
// when a profile is added to a scheduler.
type ProfileInfo struct {
	ID                  int64           `json:"id"`
	Assignment          string          `json:"assignment"`
	ObservationsCount   int             `json:"observations_count"`
	RoleConfiguration   map[string]any  `json:"role_configuration"`
	SimulatorInstanceID int64           `json:"simulator_instance_id"`
	Size                int             `json:"size"`
	SymmetryGroups      []SymmetryGroup `json:"symmetry_groups"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

// ProfileSummary carries the aggregated payoffs per symmetry group.
type ProfileSummary struct {
	ID                  int64                 `json:"id"`
	ObservationsCount   int                   `json:"observations_count"`
	SimulatorInstanceID int64                 `json:"simulator_instance_id"`
	SymmetryGroups      []SymmetryGroupPayoff `json:"symmetry_groups"`
}

// ProfileData is the observation-level snapshot. Observations carry
// per-group aggregates at "observations" granularity and per-player payoffs
// at "full".
type ProfileData struct {
	ID                  int64                 `json:"id"`
	SimulatorInstanceID int64                 `json:"simulator_instance_id"`
	SymmetryGroups      []SymmetryGroupPayoff `json:"symmetry_groups"`
	Observations        []Observation         `json:"observations"`
}

// Observation is one simulation run's worth of payoff data.
type Observation struct {
	Features         map[string]any        `json:"features"`
	ExtendedFeatures map[string]any        `json:"extended_features"`
	SymmetryGroups   []SymmetryGroupPayoff `json:"symmetry_groups"`
	Players          []ObservationPlayer   `json:"players"`
}

// ObservationPlayer is one player's payoff within an observation.
type ObservationPlayer struct {
	SymmetryGroupID int64   `json:"sid"`
	Payoff          float64 `json:"p"`
}

func toDomainGroups(groups []SymmetryGroupPayoff) []domain.SymmetryGroup {
	out := make([]domain.SymmetryGroup, len(groups))
	for i, g := range groups {
		out[i] = domain.SymmetryGroup{
			ID:       g.ID,
			Role:     g.Role,
			Strategy: g.Strategy,
			Count:    g.Count,
		}
	}
	return out
}

// ProfileInfo fetches the plain profile snapshot.
func (c *Client) ProfileInfo(ctx context.Context, id int64) (*ProfileInfo, error) {
	var info ProfileInfo
	if err := c.profileGet(ctx, id, "", &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// ProfileSummary fetches the profile with aggregated payoffs.
func (c *Client) ProfileSummary(ctx context.Context, id int64) (*ProfileSummary, error) {
	var summary ProfileSummary
	if err := c.profileGet(ctx, id, GranularitySummary, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

// ProfileObservations fetches the profile with per-observation aggregates.
func (c *Client) ProfileObservations(ctx context.Context, id int64) (*ProfileData, error) {
	var data ProfileData
	if err := c.profileGet(ctx, id, GranularityObservations, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// ProfileFull fetches the profile with per-player payoff data.
func (c *Client) ProfileFull(ctx context.Context, id int64) (*ProfileData, error) {
	var data ProfileData
	if err := c.profileGet(ctx, id, GranularityFull, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

func (c *Client) profileGet(ctx context.Context, id int64, granularity Granularity, out any) error {
	params := map[string]any{}
	if granularity != "" {
		params["granularity"] = string(granularity)
	}
	err := c.apiDo(ctx, http.MethodGet, fmt.Sprintf("profiles/%d.json", id), params, out)
	if err != nil {
		if IsNotFoundStatus(err) {
			return &domain.NotFoundError{Kind: "Profile", Name: strconv.FormatInt(id, 10)}
		}
		return fmt.Errorf("get profile %d: %w", id, err)
	}
	return nil
}

// AddProfile schedules an assignment on the scheduler with the requested
// observation count. If the profile is already scheduled the service keeps
// the existing count and returns the existing profile, so adding with count
// zero is the idempotent way to obtain a profile's id.
func (c *Client) AddProfile(ctx context.Context, schedulerID int64, assignment string, count int) (*ProfileInfo, error) {
	var prof ProfileInfo
	path := fmt.Sprintf("generic_schedulers/%d/add_profile.json", schedulerID)
	params := map[string]any{"assignment": assignment, "count": count}
	if err := c.apiDo(ctx, http.MethodPost, path, params, &prof); err != nil {
		return nil, fmt.Errorf("add profile to scheduler %d: %w", schedulerID, err)
	}
	prof.Assignment = assignment
	return &prof, nil
}

// RemoveProfile unschedules a profile from the scheduler.
func (c *Client) RemoveProfile(ctx context.Context, schedulerID, profileID int64) error {
	path := fmt.Sprintf("generic_schedulers/%d/remove_profile.json", schedulerID)
	params := map[string]any{"profile_id": profileID}
	if err := c.apiDo(ctx, http.MethodPost, path, params, nil); err != nil {
		return fmt.Errorf("remove profile %d from scheduler %d: %w", profileID, schedulerID, err)
	}
	return nil
}

// RemoveAllProfiles unschedules every profile on the scheduler.
func (c *Client) RemoveAllProfiles(ctx context.Context, schedulerID int64) error {
	reqs, err := c.SchedulerRequirements(ctx, schedulerID)
	if err != nil {
		return fmt.Errorf("remove all profiles from scheduler %d: %w", schedulerID, err)
	}
	for _, prof := range reqs.SchedulingRequirements {
		if err := c.RemoveProfile(ctx, schedulerID, prof.ProfileID); err != nil {
			return err
		}
	}
	return nil
}

// UpdateProfile sets the requested observation count for a profile
// referenced in any supported shape. The service has no in-place update, so
// the profile is removed and re-added with the new count; a failure between
// the two steps leaves the profile unscheduled. Adding a missing profile
// with AddProfile directly is cheaper when the extra round trips matter.
func (c *Client) UpdateProfile(ctx context.Context, schedulerID int64, ref domain.ProfileRef, count int) (*ProfileInfo, error) {
	profileID, assignment, err := c.resolveProfileRef(ctx, schedulerID, ref)
	if err != nil {
		return nil, fmt.Errorf("update profile on scheduler %d: %w", schedulerID, err)
	}
	if err := c.RemoveProfile(ctx, schedulerID, profileID); err != nil {
		return nil, fmt.Errorf("update profile %d: %w", profileID, err)
	}
	prof, err := c.AddProfile(ctx, schedulerID, assignment, count)
	if err != nil {
		return nil, fmt.Errorf("update profile %d: removed but not re-added: %w", profileID, err)
	}
	return prof, nil
}

// resolveProfileRef normalizes a profile reference to the (id, assignment)
// pair scheduling operations need. References without an id obtain one by
// adding the assignment with count zero.
func (c *Client) resolveProfileRef(ctx context.Context, schedulerID int64, ref domain.ProfileRef) (int64, string, error) {
	switch r := ref.(type) {
	case domain.ProfileID:
		assignment, err := c.profileAssignment(ctx, int64(r))
		if err != nil {
			return 0, "", err
		}
		return int64(r), assignment, nil
	case domain.ProfileAssignment:
		prof, err := c.AddProfile(ctx, schedulerID, string(r), 0)
		if err != nil {
			return 0, "", err
		}
		return prof.ID, string(r), nil
	case domain.ProfileSymmetryGroups:
		assignment, err := domain.AssignmentFromSymmetryGroups(r)
		if err != nil {
			return 0, "", err
		}
		prof, err := c.AddProfile(ctx, schedulerID, assignment, 0)
		if err != nil {
			return 0, "", err
		}
		return prof.ID, assignment, nil
	case domain.ProfileRecord:
		return c.resolveProfileRecord(ctx, schedulerID, r)
	default:
		return 0, "", fmt.Errorf("unsupported profile reference %T", ref)
	}
}

func (c *Client) resolveProfileRecord(ctx context.Context, schedulerID int64, rec domain.ProfileRecord) (int64, string, error) {
	assignment := rec.Assignment
	if assignment == "" && len(rec.SymmetryGroups) > 0 {
		converted, err := domain.AssignmentFromSymmetryGroups(rec.SymmetryGroups)
		if err != nil {
			return 0, "", err
		}
		assignment = converted
	}
	if assignment == "" && rec.ID != 0 {
		fetched, err := c.profileAssignment(ctx, rec.ID)
		if err != nil {
			return 0, "", err
		}
		assignment = fetched
	}
	if assignment == "" {
		return 0, "", errors.New("profile reference has no id, assignment, or symmetry groups")
	}
	id := rec.ID
	if id == 0 {
		prof, err := c.AddProfile(ctx, schedulerID, assignment, 0)
		if err != nil {
			return 0, "", err
		}
		id = prof.ID
	}
	return id, assignment, nil
}

// profileAssignment fetches a profile's canonical assignment from its
// server-side symmetry groups.
func (c *Client) profileAssignment(ctx context.Context, id int64) (string, error) {
	summary, err := c.ProfileSummary(ctx, id)
	if err != nil {
		return "", err
	}
	return domain.AssignmentFromSymmetryGroups(toDomainGroups(summary.SymmetryGroups))
}
