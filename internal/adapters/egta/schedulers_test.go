package egta

import (
	"context"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/egta-tools/egta-cli/internal/domain"
)

func TestSchedulersList(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {})
	mux.HandleFunc("/api/v3/generic_schedulers", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		w.Write([]byte(`{"generic_schedulers":[
			{"id":5,"name":"sched","active":true,"size":10,"nodes":1,
			 "observations_per_simulation":10,"simulator_instance_id":3},
			{"id":6,"name":"idle","active":false,"size":4,"nodes":1,
			 "observations_per_simulation":1,"simulator_instance_id":3}
		]}`))
	})

	client, _ := connectTestClient(t, mux, RetryPolicy{})

	schedulers, err := client.Schedulers(context.Background())
	require.NoError(t, err)
	require.Len(t, schedulers, 2)
	assert.Equal(t, int64(5), schedulers[0].ID)
	assert.True(t, schedulers[0].Active)
	assert.False(t, schedulers[1].Active)
}

func TestSchedulerByNameNotFound(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {})
	mux.HandleFunc("/api/v3/generic_schedulers", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"generic_schedulers":[{"id":5,"name":"sched"}]}`))
	})

	client, _ := connectTestClient(t, mux, RetryPolicy{})
	ctx := context.Background()

	found, err := client.SchedulerByName(ctx, "sched")
	require.NoError(t, err)
	assert.Equal(t, int64(5), found.ID)

	_, err = client.SchedulerByName(ctx, "nope")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, "Generic scheduler nope does not exist", err.Error())
}

const schedulerRequirementsBody = `{
	"id":5,"name":"sched","active":true,"size":10,"nodes":1,
	"process_memory":4096,"time_per_observation":60,
	"observations_per_simulation":10,"default_observation_requirement":0,
	"simulator_instance_id":3,"simulator_id":2,"type":"GenericScheduler",
	"configuration":[["fee","5"],["rounds","100"]],
	"scheduling_requirements":[
		{"profile_id":21,"assignment":"buyers: 2 shade","current_count":3,"requirement":10},
		{"profile_id":22,"assignment":"buyers: 1 shade, 1 truthful","current_count":10,"requirement":10}
	]}`

func TestSchedulerRequirements(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {})
	mux.HandleFunc("/api/v3/schedulers/5.json", func(w http.ResponseWriter, r *http.Request) {
		form := parseFormBody(t, r)
		assert.Equal(t, "with_requirements", form.Get("granularity"))
		w.Write([]byte(schedulerRequirementsBody))
	})

	client, _ := connectTestClient(t, mux, RetryPolicy{})

	reqs, err := client.SchedulerRequirements(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, "GenericScheduler", reqs.Type)
	assert.Equal(t, int64(2), reqs.SimulatorID)
	assert.Equal(t, map[string]string{"fee": "5", "rounds": "100"}, reqs.ConfigurationMap())
	require.Len(t, reqs.SchedulingRequirements, 2)
	assert.Equal(t, int64(21), reqs.SchedulingRequirements[0].ProfileID)
	assert.Equal(t, 3, reqs.SchedulingRequirements[0].CurrentCount)
	assert.Equal(t, client.BaseURL()+"/generic_schedulers/5", reqs.URL)
}

func TestSchedulerRequirementsTolerateNull(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {})
	mux.HandleFunc("/api/v3/schedulers/5.json", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":5,"name":"sched","type":"GenericScheduler",
			"simulator_id":2,"scheduling_requirements":null}`))
	})

	client, _ := connectTestClient(t, mux, RetryPolicy{})

	reqs, err := client.SchedulerRequirements(context.Background(), 5)
	require.NoError(t, err)
	assert.Empty(t, reqs.SchedulingRequirements)
}

func TestCreateGenericScheduler(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {})
	mux.HandleFunc("/api/v3/simulators/2.json", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":2,"name":"epp","version":"2",
			"configuration":{"fee":"2","rounds":"100"}}`))
	})
	mux.HandleFunc("/api/v3/generic_schedulers", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		form := parseFormBody(t, r)
		assert.Equal(t, "sched", form.Get("scheduler[name]"))
		assert.Equal(t, "2", form.Get("scheduler[simulator_id]"))
		assert.Equal(t, "1", form.Get("scheduler[active]"))
		assert.Equal(t, "10", form.Get("scheduler[size]"))
		assert.Equal(t, "1", form.Get("scheduler[nodes]"))
		assert.Equal(t, "0", form.Get("scheduler[default_observation_requirement]"))
		assert.Equal(t, "5", form.Get("scheduler[configuration][fee]"))
		assert.Equal(t, "100", form.Get("scheduler[configuration][rounds]"))
		w.Write([]byte(`{"id":9,"name":"sched","active":true,"size":10}`))
	})

	client, _ := connectTestClient(t, mux, RetryPolicy{})

	created, err := client.CreateGenericScheduler(context.Background(), 2, SchedulerSpec{
		Name:                      "sched",
		Active:                    true,
		ProcessMemory:             4096,
		Size:                      10,
		TimePerObservation:        60,
		ObservationsPerSimulation: 10,
		Configuration:             map[string]string{"fee": "5"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(9), created.ID)
}

func TestUpdateSchedulerSendsOnlySetFields(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {})
	mux.HandleFunc("/api/v3/generic_schedulers/5.json", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		form := parseFormBody(t, r)
		assert.Equal(t, "0", form.Get("scheduler[active]"))
		_, present := form["scheduler[name]"]
		assert.False(t, present)
		w.Write([]byte(`{}`))
	})

	client, _ := connectTestClient(t, mux, RetryPolicy{})

	require.NoError(t, client.DeactivateScheduler(context.Background(), 5))
}

func TestActivateScheduler(t *testing.T) {
	t.Parallel()

	var puts atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {})
	mux.HandleFunc("/api/v3/generic_schedulers/5.json", func(w http.ResponseWriter, r *http.Request) {
		puts.Add(1)
		form := parseFormBody(t, r)
		assert.Equal(t, "1", form.Get("scheduler[active]"))
		w.Write([]byte(`{}`))
	})

	client, _ := connectTestClient(t, mux, RetryPolicy{})

	require.NoError(t, client.ActivateScheduler(context.Background(), 5))
	require.Equal(t, int32(1), puts.Load())
}

func TestDeleteScheduler(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {})
	mux.HandleFunc("/api/v3/generic_schedulers/5.json", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		w.Write([]byte(`{}`))
	})

	client, _ := connectTestClient(t, mux, RetryPolicy{})

	require.NoError(t, client.DeleteScheduler(context.Background(), 5))
}

func TestAddSchedulerRoleWithCount(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {})
	mux.HandleFunc("/api/v3/generic_schedulers/5/add_role.json", func(w http.ResponseWriter, r *http.Request) {
		form := parseFormBody(t, r)
		assert.Equal(t, "buyers", form.Get("role"))
		assert.Equal(t, "4", form.Get("count"))
		w.Write([]byte(`{}`))
	})

	client, _ := connectTestClient(t, mux, RetryPolicy{})

	require.NoError(t, client.AddSchedulerRole(context.Background(), 5, "buyers", 4))
}

func TestCreateGameFromScheduler(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {})
	mux.HandleFunc("/api/v3/schedulers/5.json", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(schedulerRequirementsBody))
	})
	mux.HandleFunc("/api/v3/simulators/2.json", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":2,"name":"epp","version":"2",
			"configuration":{"fee":"2","rounds":"100","seed":"1"}}`))
	})
	mux.HandleFunc("/games", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		form := parseFormBody(t, r)
		assert.Equal(t, "test-token", form.Get("auth_token"))
		assert.Equal(t, "sched", form.Get("game[name]"))
		assert.Equal(t, "10", form.Get("game[size]"))
		assert.Equal(t, "2", form.Get("selector[simulator_id]"))
		assert.Equal(t, "5", form.Get("selector[configuration][fee]"))
		assert.Equal(t, "100", form.Get("selector[configuration][rounds]"))
		assert.Equal(t, "1", form.Get("selector[configuration][seed]"))
		w.Write([]byte(`<html><body><div id="game_77"></div></body></html>`))
	})

	client, _ := connectTestClient(t, mux, RetryPolicy{})

	gameID, err := client.CreateGameFromScheduler(context.Background(), 5, "")
	require.NoError(t, err)
	assert.Equal(t, int64(77), gameID)
}

func TestUnderscore(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{in: "GenericScheduler", want: "generic_scheduler"},
		{in: "Game", want: "game"},
		{in: "DprDeviationScheduler", want: "dpr_deviation_scheduler"},
		{in: "already_snake", want: "already_snake"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, underscore(tt.in))
	}
}
