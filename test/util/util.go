// Package util provides helper functions shared across integration tests.
//
// SeedPractice loads a small practice fixture (overlapping care teams plus a
// completed session history) into a session store.
//
// StartMosquitto launches a disposable Mosquitto broker in a Docker container
// for MQTT-based tests. It returns the broker URL and a cleanup function.
//
// WaitForMetric polls a Prometheus metrics endpoint until the desired metric
// appears in the output.
package util

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/novabehavior/abacore/core/model"
	"github.com/novabehavior/abacore/core/store"
)

const (
	// Default timeouts for helper operations
	MosquittoReadyTimeout = 5 * time.Second
	MetricTimeout         = 5 * time.Second

	pollInterval = 50 * time.Millisecond
)

// NextBusinessSlot returns a session window of the given length starting at
// 09:00 UTC on the next weekday at least one day ahead, so scheduling against
// the system clock always passes the future-start and business-hours rules.
func NextBusinessSlot(d time.Duration) (time.Time, time.Time) {
	t := time.Now().UTC().AddDate(0, 0, 1)
	t = time.Date(t.Year(), t.Month(), t.Day(), 9, 0, 0, 0, time.UTC)
	for t.Weekday() == time.Saturday || t.Weekday() == time.Sunday {
		t = t.AddDate(0, 0, 1)
	}
	return t, t.Add(d)
}

// SeedPractice loads the shared fixture: three clients whose care teams all
// overlap on rbt-1 or rbt-2, active directory records for the roster, and a
// completed history pairing client-1 with rbt-2 so continuity scoring has
// signal. History sessions land strictly
// before now and are created directly on the store, bypassing validation,
// the way imported records would be.
func SeedPractice(ctx context.Context, st store.Store, now time.Time) error {
	return st.RunInTransaction(ctx, func(tx store.Tx) error {
		teams := []model.Team{
			{ID: "team-1", ClientID: "client-1", RBTIDs: []string{"rbt-1", "rbt-2"}, PrimaryRBTID: "rbt-1", EffectiveDate: now.AddDate(0, 0, -60), IsActive: true},
			{ID: "team-2", ClientID: "client-2", RBTIDs: []string{"rbt-1", "rbt-3"}, PrimaryRBTID: "rbt-1", EffectiveDate: now.AddDate(0, 0, -60), IsActive: true},
			{ID: "team-3", ClientID: "client-3", RBTIDs: []string{"rbt-1", "rbt-2"}, PrimaryRBTID: "rbt-2", EffectiveDate: now.AddDate(0, 0, -60), IsActive: true},
		}
		for _, tm := range teams {
			if _, err := tx.UpsertTeam(tm); err != nil {
				return err
			}
		}
		for i, name := range []string{"Ava Chen", "Marcus Webb", "Dana Ruiz"} {
			rec := model.RBT{ID: fmt.Sprintf("rbt-%d", i+1), Name: name, IsActive: true}
			if _, err := tx.UpsertRBT(rec); err != nil {
				return err
			}
		}
		for day := 2; day <= 10; day += 2 {
			s := now.AddDate(0, 0, -day)
			start := time.Date(s.Year(), s.Month(), s.Day(), 9, 0, 0, 0, time.UTC)
			if _, err := tx.CreateSession(model.Session{
				ClientID: "client-1",
				RBTID:    "rbt-2",
				Start:    start,
				End:      start.Add(2 * time.Hour),
				Status:   model.StatusCompleted,
			}); err != nil {
				return err
			}
		}
		return nil
	})
}

// WaitForMetric polls the given metrics URL until the provided substring is
// found in the output or the context is done.
func WaitForMetric(ctx context.Context, metricsURL, substr string) error {
	for {
		req, _ := http.NewRequestWithContext(ctx, http.MethodGet, metricsURL, nil)
		resp, err := http.DefaultClient.Do(req)
		if err == nil {
			body, rerr := io.ReadAll(resp.Body)
			_ = resp.Body.Close()
			if rerr != nil {
				return fmt.Errorf("read metrics body: %w", rerr)
			}
			if strings.Contains(string(body), substr) {
				return nil
			}
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("metric %q not found: %w", substr, ctx.Err())
		case <-time.After(pollInterval):
		}
	}
}

// StartMosquitto launches a temporary Mosquitto broker inside a Docker
// container and returns its broker URL along with a cleanup function.
func StartMosquitto(ctx context.Context) (string, func(), error) {
	conf := `listener 1883
allow_anonymous true
persistence false
log_dest stdout
log_type error
log_type warning
log_type notice
`

	dir, err := os.MkdirTemp("", "mosq")
	if err != nil {
		return "", nil, err
	}
	path := filepath.Join(dir, "mosquitto.conf")
	if err := os.WriteFile(path, []byte(conf), 0644); err != nil {
		_ = os.RemoveAll(dir)
		return "", nil, err
	}

	req := tc.ContainerRequest{
		Image:        "eclipse-mosquitto:2.0",
		ExposedPorts: []string{"1883/tcp"},
		WaitingFor:   wait.ForListeningPort("1883/tcp"),
		Files: []tc.ContainerFile{
			{
				HostFilePath:      path,
				ContainerFilePath: "/mosquitto/config/mosquitto.conf",
				FileMode:          0644,
			},
		},
	}
	cont, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	if err != nil {
		_ = os.RemoveAll(dir)
		return "", nil, err
	}

	cleanup := func() {
		_ = cont.Terminate(context.Background())
		_ = os.RemoveAll(dir)
	}

	host, err := cont.Host(ctx)
	if err != nil {
		cleanup()
		return "", nil, err
	}
	port, err := cont.MappedPort(ctx, "1883")
	if err != nil {
		cleanup()
		return "", nil, err
	}
	broker := fmt.Sprintf("tcp://%s:%s", host, port.Port())

	waitCtx, cancel := context.WithTimeout(ctx, MosquittoReadyTimeout)
	defer cancel()
	if err := waitForMQTTReady(waitCtx, broker); err != nil {
		cleanup()
		return "", nil, err
	}

	return broker, cleanup, nil
}

func waitForMQTTReady(ctx context.Context, broker string) error {
	opts := paho.NewClientOptions().AddBroker(broker).SetClientID("probe")
	for {
		cli := paho.NewClient(opts)
		token := cli.Connect()
		token.Wait()
		if token.Error() == nil {
			cli.Disconnect(100)
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}
