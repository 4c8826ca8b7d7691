package egta

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/egta-tools/egta-cli/internal/domain"
)

// Simulator is one row of the simulators listing.
type Simulator struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Version   string    `json:"version"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FullName is the "name-version" form the service uses in simulation
// listings.
func (s Simulator) FullName() string {
	return s.Name + "-" + s.Version
}

// SimulatorInfo is the full simulator snapshot, including the default
// configuration new schedulers and games inherit.
type SimulatorInfo struct {
	Simulator
	Configuration     map[string]string   `json:"configuration"`
	RoleConfiguration map[string][]string `json:"role_configuration"`
	Source            SimulatorSource     `json:"source"`
	URL               string              `json:"url"`
}

type SimulatorSource struct {
	URL string `json:"url"`
}

// Simulators lists every simulator registered on the site.
func (c *Client) Simulators(ctx context.Context) ([]Simulator, error) {
	var result struct {
		Simulators []Simulator `json:"simulators"`
	}
	if err := c.apiDo(ctx, http.MethodGet, "simulators", nil, &result); err != nil {
		return nil, fmt.Errorf("list simulators: %w", err)
	}
	return result.Simulators, nil
}

// SimulatorByName resolves a simulator by name, and by version when one is
// given. With no version the name must be unambiguous: several matching
// versions is an error listing them all.
func (c *Client) SimulatorByName(ctx context.Context, name, version string) (*Simulator, error) {
	simulators, err := c.Simulators(ctx)
	if err != nil {
		return nil, err
	}
	var matches []Simulator
	for _, s := range simulators {
		if s.Name == name && (version == "" || s.Version == version) {
			matches = append(matches, s)
		}
	}
	switch {
	case len(matches) == 0:
		return nil, &domain.NotFoundError{Kind: "Simulator", Name: name, Version: version}
	case len(matches) > 1 && version == "":
		versions := make([]string, len(matches))
		for i, s := range matches {
			versions[i] = s.Version
		}
		return nil, &domain.AmbiguousError{Kind: "Simulator", Name: name, Versions: versions}
	default:
		return &matches[0], nil
	}
}

// SimulatorInfo fetches the full snapshot for a simulator id.
func (c *Client) SimulatorInfo(ctx context.Context, id int64) (*SimulatorInfo, error) {
	var info SimulatorInfo
	err := c.apiDo(ctx, http.MethodGet, fmt.Sprintf("simulators/%d.json", id), nil, &info)
	if err != nil {
		if IsNotFoundStatus(err) {
			return nil, &domain.NotFoundError{Kind: "Simulator", Name: strconv.FormatInt(id, 10)}
		}
		return nil, fmt.Errorf("get simulator %d: %w", id, err)
	}
	info.URL = c.siteURL(fmt.Sprintf("simulators/%d", info.ID))
	return &info, nil
}

// AddSimulatorRole adds a role to the simulator. Adding an existing role is
// a server-side no-op.
func (c *Client) AddSimulatorRole(ctx context.Context, simulatorID int64, role string) error {
	path := fmt.Sprintf("simulators/%d/add_role.json", simulatorID)
	if err := c.apiDo(ctx, http.MethodPost, path, map[string]any{"role": role}, nil); err != nil {
		return fmt.Errorf("add role %q to simulator %d: %w", role, simulatorID, err)
	}
	return nil
}

// RemoveSimulatorRole removes a role and all of its strategies.
func (c *Client) RemoveSimulatorRole(ctx context.Context, simulatorID int64, role string) error {
	path := fmt.Sprintf("simulators/%d/remove_role.json", simulatorID)
	if err := c.apiDo(ctx, http.MethodPost, path, map[string]any{"role": role}, nil); err != nil {
		return fmt.Errorf("remove role %q from simulator %d: %w", role, simulatorID, err)
	}
	return nil
}

// AddSimulatorStrategy adds a strategy to a role, first checking the current
// configuration so that re-adding an existing strategy does not duplicate it.
func (c *Client) AddSimulatorStrategy(ctx context.Context, simulatorID int64, role, strategy string) error {
	info, err := c.SimulatorInfo(ctx, simulatorID)
	if err != nil {
		return fmt.Errorf("add strategy %q to simulator %d: %w", strategy, simulatorID, err)
	}
	for _, existing := range info.RoleConfiguration[role] {
		if existing == strategy {
			return nil
		}
	}
	return c.addSimulatorStrategy(ctx, simulatorID, role, strategy)
}

// addSimulatorStrategy posts the strategy without the duplication check.
func (c *Client) addSimulatorStrategy(ctx context.Context, simulatorID int64, role, strategy string) error {
	path := fmt.Sprintf("simulators/%d/add_strategy.json", simulatorID)
	params := map[string]any{"role": role, "strategy": strategy}
	if err := c.apiDo(ctx, http.MethodPost, path, params, nil); err != nil {
		return fmt.Errorf("add strategy %q to simulator %d: %w", strategy, simulatorID, err)
	}
	return nil
}

// RemoveSimulatorStrategy removes a strategy from a role.
func (c *Client) RemoveSimulatorStrategy(ctx context.Context, simulatorID int64, role, strategy string) error {
	path := fmt.Sprintf("simulators/%d/remove_strategy.json", simulatorID)
	params := map[string]any{"role": role, "strategy": strategy}
	if err := c.apiDo(ctx, http.MethodPost, path, params, nil); err != nil {
		return fmt.Errorf("remove strategy %q from simulator %d: %w", strategy, simulatorID, err)
	}
	return nil
}

// AddSimulatorStrategies adds every role and strategy in the given
// configuration, skipping strategies the simulator already has. Repeated
// calls with the same input are no-ops.
func (c *Client) AddSimulatorStrategies(ctx context.Context, simulatorID int64, roleStrategies map[string][]string) error {
	info, err := c.SimulatorInfo(ctx, simulatorID)
	if err != nil {
		return fmt.Errorf("add strategies to simulator %d: %w", simulatorID, err)
	}
	for role, strategies := range roleStrategies {
		existing := make(map[string]bool, len(info.RoleConfiguration[role]))
		for _, s := range info.RoleConfiguration[role] {
			existing[s] = true
		}
		if err := c.AddSimulatorRole(ctx, simulatorID, role); err != nil {
			return err
		}
		for _, strategy := range strategies {
			if existing[strategy] {
				continue
			}
			existing[strategy] = true
			if err := c.addSimulatorStrategy(ctx, simulatorID, role, strategy); err != nil {
				return err
			}
		}
	}
	return nil
}

// RemoveSimulatorStrategies removes every strategy in the given
// configuration. Roles left empty are not removed.
func (c *Client) RemoveSimulatorStrategies(ctx context.Context, simulatorID int64, roleStrategies map[string][]string) error {
	for role, strategies := range roleStrategies {
		removed := make(map[string]bool, len(strategies))
		for _, strategy := range strategies {
			if removed[strategy] {
				continue
			}
			removed[strategy] = true
			if err := c.RemoveSimulatorStrategy(ctx, simulatorID, role, strategy); err != nil {
				return err
			}
		}
	}
	return nil
}
