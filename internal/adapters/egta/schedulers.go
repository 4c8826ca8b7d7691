package egta

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"
	"unicode"

	"github.com/egta-tools/egta-cli/internal/domain"
)

// Scheduler is the plain scheduler snapshot.
type Scheduler struct {
	ID                            int64     `json:"id"`
	Name                          string    `json:"name"`
	Active                        bool      `json:"active"`
	ProcessMemory                 int       `json:"process_memory"`
	Size                          int       `json:"size"`
	TimePerObservation            int       `json:"time_per_observation"`
	ObservationsPerSimulation     int       `json:"observations_per_simulation"`
	Nodes                         int       `json:"nodes"`
	DefaultObservationRequirement int       `json:"default_observation_requirement"`
	SimulatorInstanceID           int64     `json:"simulator_instance_id"`
	CreatedAt                     time.Time `json:"created_at"`
	UpdatedAt                     time.Time `json:"updated_at"`
}

// SchedulerRequirements is the "with_requirements" snapshot: a superset of
// the plain scheduler carrying the scheduled profiles and the simulator
// configuration the scheduler runs under.
type SchedulerRequirements struct {
	Scheduler
	Type                   string               `json:"type"`
	SimulatorID            int64                `json:"simulator_id"`
	Configuration          [][]string           `json:"configuration"`
	SchedulingRequirements []ProfileRequirement `json:"scheduling_requirements"`
	URL                    string               `json:"url"`
}

// ConfigurationMap converts the configuration key/value pairs to a map.
func (s *SchedulerRequirements) ConfigurationMap() map[string]string {
	conf := make(map[string]string, len(s.Configuration))
	for _, pair := range s.Configuration {
		if len(pair) == 2 {
			conf[pair[0]] = pair[1]
		}
	}
	return conf
}

// ProfileRequirement is one scheduled profile: how many observations were
// requested and how many the service has collected so far.
type ProfileRequirement struct {
	ProfileID    int64  `json:"profile_id"`
	Assignment   string `json:"assignment"`
	CurrentCount int    `json:"current_count"`
	Requirement  int    `json:"requirement"`
}

// SchedulerSpec holds the parameters for creating a generic scheduler.
// Configuration entries override the simulator's defaults.
type SchedulerSpec struct {
	Name                      string
	Active                    bool
	ProcessMemory             int
	Size                      int
	TimePerObservation        int
	ObservationsPerSimulation int
	Nodes                     int
	Configuration             map[string]string
}

// SchedulerUpdate is a partial scheduler update; nil fields are left alone.
// The configuration cannot be changed after creation.
type SchedulerUpdate struct {
	Name                      *string
	Active                    *bool
	ProcessMemory             *int
	Size                      *int
	TimePerObservation        *int
	ObservationsPerSimulation *int
	Nodes                     *int
}

// Schedulers lists every generic scheduler on the site.
func (c *Client) Schedulers(ctx context.Context) ([]Scheduler, error) {
	var result struct {
		GenericSchedulers []Scheduler `json:"generic_schedulers"`
	}
	if err := c.apiDo(ctx, http.MethodGet, "generic_schedulers", nil, &result); err != nil {
		return nil, fmt.Errorf("list schedulers: %w", err)
	}
	return result.GenericSchedulers, nil
}

// SchedulerByName resolves a generic scheduler by exact name.
func (c *Client) SchedulerByName(ctx context.Context, name string) (*Scheduler, error) {
	schedulers, err := c.Schedulers(ctx)
	if err != nil {
		return nil, err
	}
	for i, s := range schedulers {
		if s.Name == name {
			return &schedulers[i], nil
		}
	}
	return nil, &domain.NotFoundError{Kind: "Generic scheduler", Name: name}
}

// SchedulerInfo fetches the plain snapshot for a scheduler id.
func (c *Client) SchedulerInfo(ctx context.Context, id int64) (*Scheduler, error) {
	var info Scheduler
	err := c.apiDo(ctx, http.MethodGet, fmt.Sprintf("schedulers/%d.json", id), nil, &info)
	if err != nil {
		if IsNotFoundStatus(err) {
			return nil, &domain.NotFoundError{Kind: "Generic scheduler", Name: strconv.FormatInt(id, 10)}
		}
		return nil, fmt.Errorf("get scheduler %d: %w", id, err)
	}
	return &info, nil
}

// SchedulerRequirements fetches the scheduler with its scheduled profiles.
func (c *Client) SchedulerRequirements(ctx context.Context, id int64) (*SchedulerRequirements, error) {
	var reqs SchedulerRequirements
	path := fmt.Sprintf("schedulers/%d.json", id)
	err := c.apiDo(ctx, http.MethodGet, path, map[string]any{"granularity": "with_requirements"}, &reqs)
	if err != nil {
		if IsNotFoundStatus(err) {
			return nil, &domain.NotFoundError{Kind: "Generic scheduler", Name: strconv.FormatInt(id, 10)}
		}
		return nil, fmt.Errorf("get scheduler %d requirements: %w", id, err)
	}
	reqs.URL = c.siteURL(fmt.Sprintf("%ss/%d", underscore(reqs.Type), reqs.ID))
	return &reqs, nil
}

// CreateGenericScheduler creates a scheduler for the simulator, seeding its
// configuration with the simulator's defaults before applying the spec's
// overrides.
func (c *Client) CreateGenericScheduler(ctx context.Context, simulatorID int64, spec SchedulerSpec) (*Scheduler, error) {
	info, err := c.SimulatorInfo(ctx, simulatorID)
	if err != nil {
		return nil, fmt.Errorf("create scheduler %q: %w", spec.Name, err)
	}
	conf := make(map[string]string, len(info.Configuration)+len(spec.Configuration))
	for key, value := range info.Configuration {
		conf[key] = value
	}
	for key, value := range spec.Configuration {
		conf[key] = value
	}
	nodes := spec.Nodes
	if nodes == 0 {
		nodes = 1
	}
	params := map[string]any{"scheduler": map[string]any{
		"simulator_id":                    simulatorID,
		"name":                            spec.Name,
		"active":                          boolToInt(spec.Active),
		"process_memory":                  spec.ProcessMemory,
		"size":                            spec.Size,
		"time_per_observation":            spec.TimePerObservation,
		"observations_per_simulation":     spec.ObservationsPerSimulation,
		"nodes":                           nodes,
		"default_observation_requirement": 0,
		"configuration":                   conf,
	}}
	var created Scheduler
	if err := c.apiDo(ctx, http.MethodPost, "generic_schedulers", params, &created); err != nil {
		return nil, fmt.Errorf("create scheduler %q: %w", spec.Name, err)
	}
	return &created, nil
}

// UpdateScheduler applies a partial update to a scheduler.
func (c *Client) UpdateScheduler(ctx context.Context, id int64, update SchedulerUpdate) error {
	fields := map[string]any{}
	if update.Name != nil {
		fields["name"] = *update.Name
	}
	if update.Active != nil {
		fields["active"] = boolToInt(*update.Active)
	}
	if update.ProcessMemory != nil {
		fields["process_memory"] = *update.ProcessMemory
	}
	if update.Size != nil {
		fields["size"] = *update.Size
	}
	if update.TimePerObservation != nil {
		fields["time_per_observation"] = *update.TimePerObservation
	}
	if update.ObservationsPerSimulation != nil {
		fields["observations_per_simulation"] = *update.ObservationsPerSimulation
	}
	if update.Nodes != nil {
		fields["nodes"] = *update.Nodes
	}
	path := fmt.Sprintf("generic_schedulers/%d.json", id)
	if err := c.apiDo(ctx, http.MethodPut, path, map[string]any{"scheduler": fields}, nil); err != nil {
		return fmt.Errorf("update scheduler %d: %w", id, err)
	}
	return nil
}

// ActivateScheduler starts the scheduler taking observations.
func (c *Client) ActivateScheduler(ctx context.Context, id int64) error {
	active := true
	return c.UpdateScheduler(ctx, id, SchedulerUpdate{Active: &active})
}

// DeactivateScheduler pauses the scheduler.
func (c *Client) DeactivateScheduler(ctx context.Context, id int64) error {
	active := false
	return c.UpdateScheduler(ctx, id, SchedulerUpdate{Active: &active})
}

// AddSchedulerRole adds a role with the given player count.
func (c *Client) AddSchedulerRole(ctx context.Context, id int64, role string, count int) error {
	path := fmt.Sprintf("generic_schedulers/%d/add_role.json", id)
	params := map[string]any{"role": role, "count": count}
	if err := c.apiDo(ctx, http.MethodPost, path, params, nil); err != nil {
		return fmt.Errorf("add role %q to scheduler %d: %w", role, id, err)
	}
	return nil
}

// RemoveSchedulerRole removes a role from the scheduler.
func (c *Client) RemoveSchedulerRole(ctx context.Context, id int64, role string) error {
	path := fmt.Sprintf("generic_schedulers/%d/remove_role.json", id)
	if err := c.apiDo(ctx, http.MethodPost, path, map[string]any{"role": role}, nil); err != nil {
		return fmt.Errorf("remove role %q from scheduler %d: %w", role, id, err)
	}
	return nil
}

// DeleteScheduler deletes a generic scheduler.
func (c *Client) DeleteScheduler(ctx context.Context, id int64) error {
	path := fmt.Sprintf("generic_schedulers/%d.json", id)
	if err := c.apiDo(ctx, http.MethodDelete, path, nil, nil); err != nil {
		return fmt.Errorf("delete scheduler %d: %w", id, err)
	}
	return nil
}

// CreateGameFromScheduler creates a game with the scheduler's simulator,
// size, and configuration. An empty name copies the scheduler's. Returns the
// new game's id.
func (c *Client) CreateGameFromScheduler(ctx context.Context, schedulerID int64, name string) (int64, error) {
	reqs, err := c.SchedulerRequirements(ctx, schedulerID)
	if err != nil {
		return 0, fmt.Errorf("create game from scheduler %d: %w", schedulerID, err)
	}
	if name == "" {
		name = reqs.Name
	}
	return c.CreateGame(ctx, reqs.SimulatorID, name, reqs.Size, reqs.ConfigurationMap())
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// underscore converts a CamelCase type name to the snake_case path segment
// used in scheduler URLs ("GenericScheduler" to "generic_scheduler").
func underscore(s string) string {
	var out []rune
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				out = append(out, '_')
			}
			out = append(out, unicode.ToLower(r))
		} else {
			out = append(out, r)
		}
	}
	return string(out)
}
