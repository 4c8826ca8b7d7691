package egta

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/egta-tools/egta-cli/internal/domain"
)

// Game is one row of the games listing.
type Game struct {
	ID                  int64     `json:"id"`
	Name                string    `json:"name"`
	Size                int       `json:"size"`
	SimulatorInstanceID int64     `json:"simulator_instance_id"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// GameStructure is the structure-granularity snapshot: the game itself with
// no profile data.
type GameStructure struct {
	Game
	URL string `json:"url"`
}

// GameSummary carries every game profile with aggregated payoffs.
type GameSummary struct {
	ID                int64         `json:"id"`
	Name              string        `json:"name"`
	SimulatorFullname string        `json:"simulator_fullname"`
	Size              int           `json:"size"`
	Configuration     [][]string    `json:"configuration"`
	Roles             []GameRole    `json:"roles"`
	Profiles          []GameProfile `json:"profiles"`
	URL               string        `json:"url"`
}

// GameData is the observation-level snapshot shared by the "observations"
// and "full" granularities.
type GameData struct {
	ID                int64             `json:"id"`
	Name              string            `json:"name"`
	SimulatorFullname string            `json:"simulator_fullname"`
	Size              int               `json:"size"`
	Configuration     [][]string        `json:"configuration"`
	Roles             []GameRole        `json:"roles"`
	Profiles          []GameProfileData `json:"profiles"`
	URL               string            `json:"url"`
}

// GameRole is one role of the game with its strategy set.
type GameRole struct {
	Name       string   `json:"name"`
	Count      int      `json:"count"`
	Strategies []string `json:"strategies"`
}

// GameProfile is a profile within a game summary.
type GameProfile struct {
	ID                int64                 `json:"id"`
	ObservationsCount int                   `json:"observations_count"`
	SymmetryGroups    []SymmetryGroupPayoff `json:"symmetry_groups"`
}

// GameProfileData is a profile with observation-level payoff data.
type GameProfileData struct {
	ID                int64                 `json:"id"`
	ObservationsCount int                   `json:"observations_count"`
	SymmetryGroups    []SymmetryGroupPayoff `json:"symmetry_groups"`
	Observations      []Observation         `json:"observations"`
}

// Games lists every game on the site.
func (c *Client) Games(ctx context.Context) ([]Game, error) {
	var result struct {
		Games []Game `json:"games"`
	}
	if err := c.apiDo(ctx, http.MethodGet, "games", nil, &result); err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}
	return result.Games, nil
}

// GameByName resolves a game by exact name.
func (c *Client) GameByName(ctx context.Context, name string) (*Game, error) {
	games, err := c.Games(ctx)
	if err != nil {
		return nil, err
	}
	for i, g := range games {
		if g.Name == name {
			return &games[i], nil
		}
	}
	return nil, &domain.NotFoundError{Kind: "Game", Name: name}
}

// GameStructure fetches the game without profile data.
func (c *Client) GameStructure(ctx context.Context, id int64) (*GameStructure, error) {
	var structure GameStructure
	if err := c.gameGet(ctx, id, GranularityStructure, &structure); err != nil {
		return nil, err
	}
	structure.URL = c.siteURL(fmt.Sprintf("games/%d", id))
	return &structure, nil
}

// GameSummary fetches the game with aggregated profile payoffs.
func (c *Client) GameSummary(ctx context.Context, id int64) (*GameSummary, error) {
	var summary GameSummary
	if err := c.gameGet(ctx, id, GranularitySummary, &summary); err != nil {
		return nil, err
	}
	summary.URL = c.siteURL(fmt.Sprintf("games/%d", id))
	return &summary, nil
}

// GameObservations fetches the game with per-observation aggregates.
func (c *Client) GameObservations(ctx context.Context, id int64) (*GameData, error) {
	return c.gameData(ctx, id, GranularityObservations)
}

// GameFull fetches the game with per-player payoff data.
func (c *Client) GameFull(ctx context.Context, id int64) (*GameData, error) {
	return c.gameData(ctx, id, GranularityFull)
}

func (c *Client) gameData(ctx context.Context, id int64, granularity Granularity) (*GameData, error) {
	var data GameData
	if err := c.gameGet(ctx, id, granularity, &data); err != nil {
		return nil, err
	}
	data.URL = c.siteURL(fmt.Sprintf("games/%d", id))
	return &data, nil
}

// gameGet fetches game data through the legacy endpoint; the structured API
// route for games is broken server-side. The structure granularity arrives
// double encoded, a JSON string containing the JSON object.
func (c *Client) gameGet(ctx context.Context, id int64, granularity Granularity, out any) error {
	rawURL := c.siteURL(fmt.Sprintf("games/%d.json", id))
	resp, err := c.do(ctx, http.MethodGet, rawURL, map[string]any{"granularity": string(granularity)})
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		if IsNotFoundStatus(err) {
			return &domain.NotFoundError{Kind: "Game", Name: strconv.FormatInt(id, 10)}
		}
		return fmt.Errorf("get game %d: %w", id, err)
	}
	if granularity == GranularityStructure {
		var encoded string
		if err := json.NewDecoder(resp.Body).Decode(&encoded); err != nil {
			return fmt.Errorf("decode game %d structure: %w", id, err)
		}
		if err := json.Unmarshal([]byte(encoded), out); err != nil {
			return fmt.Errorf("decode game %d structure: %w", id, err)
		}
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode game %d %s: %w", id, granularity, err)
	}
	return nil
}

// CreateGame creates a game through the legacy form endpoint, seeding the
// selector configuration with the simulator's defaults before applying the
// overrides. The response is an HTML page; the new game's id is parsed out
// of the div whose id attribute carries it. Returns the id.
func (c *Client) CreateGame(ctx context.Context, simulatorID int64, name string, size int, configuration map[string]string) (int64, error) {
	info, err := c.SimulatorInfo(ctx, simulatorID)
	if err != nil {
		return 0, fmt.Errorf("create game %q: %w", name, err)
	}
	conf := make(map[string]string, len(info.Configuration)+len(configuration))
	for key, value := range info.Configuration {
		conf[key] = value
	}
	for key, value := range configuration {
		conf[key] = value
	}

	params := map[string]any{
		// The session cookie alone does not satisfy this endpoint.
		"auth_token": c.authToken,
		"game": map[string]any{
			"name": name,
			"size": size,
		},
		"selector": map[string]any{
			"simulator_id":  simulatorID,
			"configuration": conf,
		},
	}
	resp, err := c.do(ctx, http.MethodPost, c.siteURL("games"), params)
	if err != nil {
		return 0, fmt.Errorf("create game %q: %w", name, err)
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return 0, fmt.Errorf("create game %q: %w", name, err)
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("create game %q: parse response: %w", name, err)
	}
	gameID, ok := findGameID(doc)
	if !ok {
		return 0, fmt.Errorf("create game %q: no game id in response", name)
	}
	return gameID, nil
}

// DeleteGame deletes a game. The legacy endpoint only speaks POST, so the
// delete goes through the usual form-method override.
func (c *Client) DeleteGame(ctx context.Context, id int64) error {
	params := map[string]any{
		"_method":    "delete",
		"auth_token": c.authToken,
	}
	resp, err := c.do(ctx, http.MethodPost, c.siteURL(fmt.Sprintf("games/%d", id)), params)
	if err != nil {
		return fmt.Errorf("delete game %d: %w", id, err)
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return fmt.Errorf("delete game %d: %w", id, err)
	}
	return nil
}

// AddGameRole adds a role with the given player count to the game.
func (c *Client) AddGameRole(ctx context.Context, gameID int64, role string, count int) error {
	path := fmt.Sprintf("games/%d/add_role.json", gameID)
	params := map[string]any{"role": role, "count": count}
	if err := c.apiDo(ctx, http.MethodPost, path, params, nil); err != nil {
		return fmt.Errorf("add role %q to game %d: %w", role, gameID, err)
	}
	return nil
}

// RemoveGameRole removes a role from the game.
func (c *Client) RemoveGameRole(ctx context.Context, gameID int64, role string) error {
	path := fmt.Sprintf("games/%d/remove_role.json", gameID)
	if err := c.apiDo(ctx, http.MethodPost, path, map[string]any{"role": role}, nil); err != nil {
		return fmt.Errorf("remove role %q from game %d: %w", role, gameID, err)
	}
	return nil
}

// AddGameStrategy adds a strategy to a role of the game.
func (c *Client) AddGameStrategy(ctx context.Context, gameID int64, role, strategy string) error {
	path := fmt.Sprintf("games/%d/add_strategy.json", gameID)
	params := map[string]any{"role": role, "strategy": strategy}
	if err := c.apiDo(ctx, http.MethodPost, path, params, nil); err != nil {
		return fmt.Errorf("add strategy %q to game %d: %w", strategy, gameID, err)
	}
	return nil
}

// RemoveGameStrategy removes a strategy from a role of the game.
func (c *Client) RemoveGameStrategy(ctx context.Context, gameID int64, role, strategy string) error {
	path := fmt.Sprintf("games/%d/remove_strategy.json", gameID)
	params := map[string]any{"role": role, "strategy": strategy}
	if err := c.apiDo(ctx, http.MethodPost, path, params, nil); err != nil {
		return fmt.Errorf("remove strategy %q from game %d: %w", strategy, gameID, err)
	}
	return nil
}

// AddGameStrategies adds every strategy in the given configuration. Unlike
// the simulator helper there is no duplicate check; the game endpoint
// tolerates re-adds.
func (c *Client) AddGameStrategies(ctx context.Context, gameID int64, roleStrategies map[string][]string) error {
	for role, strategies := range roleStrategies {
		for _, strategy := range strategies {
			if err := c.AddGameStrategy(ctx, gameID, role, strategy); err != nil {
				return err
			}
		}
	}
	return nil
}

// RemoveGameStrategies removes every strategy in the given configuration.
// Roles left empty are not removed.
func (c *Client) RemoveGameStrategies(ctx context.Context, gameID int64, roleStrategies map[string][]string) error {
	for role, strategies := range roleStrategies {
		removed := make(map[string]bool, len(strategies))
		for _, strategy := range strategies {
			if removed[strategy] {
				continue
			}
			removed[strategy] = true
			if err := c.RemoveGameStrategy(ctx, gameID, role, strategy); err != nil {
				return err
			}
		}
	}
	return nil
}

func findGameID(doc *html.Node) (int64, bool) {
	var gameID int64
	found := false
	walkElements(doc, func(n *html.Node) {
		if found || n.Data != "div" {
			return
		}
		id := htmlAttr(n, "id")
		if !strings.HasPrefix(id, "game_") {
			return
		}
		parsed, err := strconv.ParseInt(strings.TrimPrefix(id, "game_"), 10, 64)
		if err != nil {
			return
		}
		gameID = parsed
		found = true
	})
	return gameID, found
}
