package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

var (
	redisOnce      sync.Once
	redisContainer testcontainers.Container
	redisAddr      string
	redisErr       error
)

// GetRedisAddress returns host:port of a Redis container shared by all
// tests in the binary. The container is started on first use and cleaned
// up when the test that started it finishes.
func GetRedisAddress(t *testing.T) string {
	t.Helper()
	startRedisOnce(t)
	if redisErr != nil {
		t.Fatalf("starting redis container: %v", redisErr)
	}
	return redisAddr
}

func startRedisOnce(t *testing.T) string {
	t.Helper()

	redisOnce.Do(func() {
		// Give generous timeout in CI environments
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
		defer cancel()

		redisC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
			ContainerRequest: testcontainers.ContainerRequest{
				Image:        "redis:7",
				ExposedPorts: []string{"6379/tcp"},
				WaitingFor: wait.ForAll(
					// Container is listening
					wait.ForListeningPort("6379/tcp"),
					// Redis reports readiness in logs
					wait.ForLog("Ready to accept connections"),
				).WithDeadline(2 * time.Minute),
			},
			Started: true,
		})
		if err != nil {
			redisErr = err
			return
		}

		t.Cleanup(func() {
			if redisC != nil {
				_ = redisC.Terminate(context.Background())
			}
		})

		endpoint, err := redisC.Endpoint(ctx, "")
		if err != nil {
			_ = redisC.Terminate(context.Background()) // best-effort cleanup
			redisErr = err
			return
		}

		redisContainer = redisC
		redisAddr = endpoint
	})

	return redisAddr
}
