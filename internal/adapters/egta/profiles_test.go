package egta

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/egta-tools/egta-cli/internal/domain"
)

// fakeSchedulerServer mimics scheduler 5's profile endpoints with in-memory
// state. Profiles persist once created; scheduling only toggles whether they
// appear in the requirements, which matches the service: removing a profile
// from a scheduler does not delete it.
type fakeSchedulerServer struct {
	t        *testing.T
	mu       sync.Mutex
	nextID   int64
	profiles map[string]*fakeProfile
	failAdds bool
}

type fakeProfile struct {
	id          int64
	assignment  string
	scheduled   bool
	requirement int
}

func newFakeSchedulerServer(t *testing.T) *fakeSchedulerServer {
	return &fakeSchedulerServer{t: t, nextID: 1, profiles: map[string]*fakeProfile{}}
}

func (f *fakeSchedulerServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {})
	mux.HandleFunc("/api/v3/generic_schedulers/5/add_profile.json", f.addProfile)
	mux.HandleFunc("/api/v3/generic_schedulers/5/remove_profile.json", f.removeProfile)
	mux.HandleFunc("/api/v3/schedulers/5.json", f.requirements)
	mux.HandleFunc("/api/v3/profiles/", f.profile)
	return mux
}

func (f *fakeSchedulerServer) addProfile(w http.ResponseWriter, r *http.Request) {
	form := parseFormBody(f.t, r)
	assignment := form.Get("assignment")
	count, err := strconv.Atoi(form.Get("count"))
	require.NoError(f.t, err)

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAdds {
		http.Error(w, "boom", http.StatusInternalServerError)
		return
	}
	p, ok := f.profiles[assignment]
	if !ok {
		p = &fakeProfile{id: f.nextID, assignment: assignment}
		f.nextID++
		f.profiles[assignment] = p
	}
	// Re-adding a scheduled profile keeps the existing requirement.
	if !p.scheduled {
		p.scheduled = true
		p.requirement = count
	}
	f.writeProfile(w, p, "")
}

func (f *fakeSchedulerServer) removeProfile(w http.ResponseWriter, r *http.Request) {
	form := parseFormBody(f.t, r)
	id, err := strconv.ParseInt(form.Get("profile_id"), 10, 64)
	require.NoError(f.t, err)

	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.profiles {
		if p.id == id {
			p.scheduled = false
		}
	}
	w.Write([]byte(`{}`))
}

func (f *fakeSchedulerServer) requirements(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	reqs := []map[string]any{}
	for _, p := range f.profiles {
		if !p.scheduled {
			continue
		}
		reqs = append(reqs, map[string]any{
			"profile_id":    p.id,
			"assignment":    p.assignment,
			"current_count": 0,
			"requirement":   p.requirement,
		})
	}
	payload := map[string]any{
		"id":                      5,
		"name":                    "sched",
		"type":                    "GenericScheduler",
		"simulator_id":            2,
		"size":                    10,
		"scheduling_requirements": reqs,
	}
	require.NoError(f.t, json.NewEncoder(w).Encode(payload))
}

func (f *fakeSchedulerServer) profile(w http.ResponseWriter, r *http.Request) {
	idText := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/api/v3/profiles/"), ".json")
	id, err := strconv.ParseInt(idText, 10, 64)
	require.NoError(f.t, err)
	form := parseFormBody(f.t, r)

	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.profiles {
		if p.id == id {
			f.writeProfile(w, p, form.Get("granularity"))
			return
		}
	}
	http.NotFound(w, r)
}

func (f *fakeSchedulerServer) writeProfile(w http.ResponseWriter, p *fakeProfile, granularity string) {
	groups, err := domain.ParseAssignment(p.assignment)
	require.NoError(f.t, err)
	wire := make([]SymmetryGroupPayoff, len(groups))
	size := 0
	for i, g := range groups {
		wire[i] = SymmetryGroupPayoff{SymmetryGroup: SymmetryGroup{
			ID: int64(i + 1), Role: g.Role, Strategy: g.Strategy, Count: g.Count,
		}}
		size += g.Count
	}
	payload := map[string]any{
		"id":                    p.id,
		"observations_count":    0,
		"simulator_instance_id": 3,
		"symmetry_groups":       wire,
	}
	if granularity == "" {
		payload["assignment"] = p.assignment
		payload["size"] = size
	}
	require.NoError(f.t, json.NewEncoder(w).Encode(payload))
}

func (f *fakeSchedulerServer) requirementFor(assignment string) (int, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[assignment]
	if !ok || !p.scheduled {
		return 0, false
	}
	return p.requirement, true
}

func connectFakeScheduler(t *testing.T, fake *fakeSchedulerServer) *Client {
	t.Helper()
	server := httptest.NewServer(fake.handler())
	t.Cleanup(server.Close)
	client, err := Connect(context.Background(), Config{
		Domain:    server.URL,
		AuthToken: "test-token",
		Clock:     &fakeClock{},
		Logger:    quietLogger(),
	})
	require.NoError(t, err)
	t.Cleanup(client.Close)
	return client
}

const testAssignment = "buyers: 2 shade; sellers: 1 shade"

func TestAddProfileIsIdempotent(t *testing.T) {
	t.Parallel()

	fake := newFakeSchedulerServer(t)
	client := connectFakeScheduler(t, fake)
	ctx := context.Background()

	first, err := client.AddProfile(ctx, 5, testAssignment, 3)
	require.NoError(t, err)
	assert.Equal(t, testAssignment, first.Assignment)

	again, err := client.AddProfile(ctx, 5, testAssignment, 9)
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)

	requirement, scheduled := fake.requirementFor(testAssignment)
	require.True(t, scheduled)
	assert.Equal(t, 3, requirement)

	// Adding with count zero is the idempotent way to look up the id.
	byZero, err := client.AddProfile(ctx, 5, testAssignment, 0)
	require.NoError(t, err)
	assert.Equal(t, first.ID, byZero.ID)
}

func TestUpdateProfileByEachReferenceShape(t *testing.T) {
	t.Parallel()

	fake := newFakeSchedulerServer(t)
	client := connectFakeScheduler(t, fake)
	ctx := context.Background()

	seeded, err := client.AddProfile(ctx, 5, testAssignment, 3)
	require.NoError(t, err)

	groups := []domain.SymmetryGroup{
		{Role: "buyers", Strategy: "shade", Count: 2},
		{Role: "sellers", Strategy: "shade", Count: 1},
	}

	tests := []struct {
		name  string
		ref   domain.ProfileRef
		count int
	}{
		{name: "by id", ref: domain.ProfileID(seeded.ID), count: 10},
		{name: "by assignment", ref: domain.ProfileAssignment(testAssignment), count: 7},
		{name: "by symmetry groups", ref: domain.ProfileSymmetryGroups(groups), count: 5},
		{name: "by record without id", ref: domain.ProfileRecord{SymmetryGroups: groups}, count: 4},
		{name: "by record with id only", ref: domain.ProfileRecord{ID: seeded.ID}, count: 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prof, err := client.UpdateProfile(ctx, 5, tt.ref, tt.count)
			require.NoError(t, err)
			assert.Equal(t, seeded.ID, prof.ID)
			assert.Equal(t, testAssignment, prof.Assignment)

			requirement, scheduled := fake.requirementFor(testAssignment)
			require.True(t, scheduled)
			assert.Equal(t, tt.count, requirement)
		})
	}
}

func TestUpdateProfileRejectsEmptyRecord(t *testing.T) {
	t.Parallel()

	fake := newFakeSchedulerServer(t)
	client := connectFakeScheduler(t, fake)

	_, err := client.UpdateProfile(context.Background(), 5, domain.ProfileRecord{}, 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no id, assignment, or symmetry groups")
}

func TestUpdateProfileFailureLeavesProfileUnscheduled(t *testing.T) {
	t.Parallel()

	fake := newFakeSchedulerServer(t)
	client := connectFakeScheduler(t, fake)
	ctx := context.Background()

	seeded, err := client.AddProfile(ctx, 5, testAssignment, 3)
	require.NoError(t, err)

	fake.mu.Lock()
	fake.failAdds = true
	fake.mu.Unlock()

	_, err = client.UpdateProfile(ctx, 5, domain.ProfileID(seeded.ID), 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "removed but not re-added")

	_, scheduled := fake.requirementFor(testAssignment)
	assert.False(t, scheduled)
}

func TestRemoveAllProfiles(t *testing.T) {
	t.Parallel()

	fake := newFakeSchedulerServer(t)
	client := connectFakeScheduler(t, fake)
	ctx := context.Background()

	_, err := client.AddProfile(ctx, 5, "buyers: 2 shade", 3)
	require.NoError(t, err)
	_, err = client.AddProfile(ctx, 5, "buyers: 1 shade, 1 truthful", 3)
	require.NoError(t, err)

	require.NoError(t, client.RemoveAllProfiles(ctx, 5))

	reqs, err := client.SchedulerRequirements(ctx, 5)
	require.NoError(t, err)
	assert.Empty(t, reqs.SchedulingRequirements)
}

func TestProfileSummary(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {})
	mux.HandleFunc("/api/v3/profiles/21.json", func(w http.ResponseWriter, r *http.Request) {
		form := parseFormBody(t, r)
		assert.Equal(t, "summary", form.Get("granularity"))
		w.Write([]byte(`{"id":21,"observations_count":10,"simulator_instance_id":3,
			"symmetry_groups":[
				{"id":1,"role":"buyers","strategy":"shade","count":2,"payoff":4.5,"payoff_sd":0.25},
				{"id":2,"role":"sellers","strategy":"shade","count":1,"payoff":-1.5,"payoff_sd":0.5}
			]}`))
	})

	client, _ := connectTestClient(t, mux, RetryPolicy{})

	summary, err := client.ProfileSummary(context.Background(), 21)
	require.NoError(t, err)
	assert.Equal(t, 10, summary.ObservationsCount)
	require.Len(t, summary.SymmetryGroups, 2)
	assert.Equal(t, 4.5, summary.SymmetryGroups[0].Payoff)
	assert.Equal(t, 0.25, summary.SymmetryGroups[0].PayoffSD)
	assert.Equal(t, "sellers", summary.SymmetryGroups[1].Role)
}

func TestProfileInfoOmitsGranularity(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {})
	mux.HandleFunc("/api/v3/profiles/21.json", func(w http.ResponseWriter, r *http.Request) {
		form := parseFormBody(t, r)
		_, present := form["granularity"]
		assert.False(t, present)
		w.Write([]byte(`{"id":21,"assignment":"buyers: 2 shade","size":2}`))
	})

	client, _ := connectTestClient(t, mux, RetryPolicy{})

	info, err := client.ProfileInfo(context.Background(), 21)
	require.NoError(t, err)
	assert.Equal(t, "buyers: 2 shade", info.Assignment)
	assert.Equal(t, 2, info.Size)
}

func TestProfileObservationsParsesPlayers(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {})
	mux.HandleFunc("/api/v3/profiles/21.json", func(w http.ResponseWriter, r *http.Request) {
		form := parseFormBody(t, r)
		assert.Equal(t, "full", form.Get("granularity"))
		w.Write([]byte(`{"id":21,"simulator_instance_id":3,
			"symmetry_groups":[{"id":1,"role":"buyers","strategy":"shade","count":2}],
			"observations":[{"extended_features":{"total":7.5},"features":{},
				"players":[{"sid":1,"p":3},{"sid":1,"p":4.5}]}]}`))
	})

	client, _ := connectTestClient(t, mux, RetryPolicy{})

	full, err := client.ProfileFull(context.Background(), 21)
	require.NoError(t, err)
	require.Len(t, full.Observations, 1)
	obs := full.Observations[0]
	assert.Equal(t, 7.5, obs.ExtendedFeatures["total"])
	require.Len(t, obs.Players, 2)
	assert.Equal(t, 4.5, obs.Players[1].Payoff)
}

func TestProfileNotFound(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {})
	mux.HandleFunc("/api/v3/profiles/99.json", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	client, _ := connectTestClient(t, mux, RetryPolicy{})

	_, err := client.ProfileInfo(context.Background(), 99)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, "Profile 99 does not exist", err.Error())
}
