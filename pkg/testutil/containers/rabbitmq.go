//go:build integration

package containers

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// RabbitMQContainer wraps a RabbitMQ broker for the AMQP event relay.
type RabbitMQContainer struct {
	Container testcontainers.Container
	URL       string
}

// NewRabbitMQContainer starts a RabbitMQ broker and waits for its listener.
func NewRabbitMQContainer(t *testing.T) *RabbitMQContainer {
	t.Helper()

	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "rabbitmq:3.13-alpine",
			ExposedPorts: []string{"5672/tcp"},
			Env: map[string]string{
				"RABBITMQ_DEFAULT_USER": "dim",
				"RABBITMQ_DEFAULT_PASS": "dim",
			},
			WaitingFor: wait.ForLog("Server startup complete").WithStartupTimeout(90 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("failed to start rabbitmq container: %v", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to get rabbitmq host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5672/tcp")
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to get rabbitmq port: %v", err)
	}

	return &RabbitMQContainer{
		Container: container,
		URL:       fmt.Sprintf("amqp://dim:dim@%s:%s/", host, port.Port()),
	}
}
