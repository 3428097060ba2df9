//go:build integration

package queue

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/dharsanguruparan/photojobs/internal/model"
)

func TestEnqueueSameJobTwice(t *testing.T) {
	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil || container == nil {
		t.Skipf("docker not available, skipping integration test: %v", err)
		return
	}
	defer func() { _ = container.Terminate(ctx) }()

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("container port: %v", err)
	}
	opt := asynq.RedisClientOpt{Addr: fmt.Sprintf("%s:%s", host, port.Port())}
	client := asynq.NewClient(opt)
	defer client.Close()

	payload := Payload{OwnerID: "alice", JobID: "job-1"}
	first, err := Enqueue(ctx, client, model.JobDeleteMissingPhotos, payload, "photos")
	if err != nil {
		t.Fatalf("first enqueue: %v", err)
	}
	// A failed run leaves its task archived under its id; the job id must
	// still be accepted again.
	inspector := asynq.NewInspector(opt)
	defer inspector.Close()
	if err := inspector.ArchiveTask("photos", first.ID); err != nil {
		t.Fatalf("archive: %v", err)
	}

	second, err := Enqueue(ctx, client, model.JobDeleteMissingPhotos, payload, "photos")
	if err != nil {
		t.Fatalf("resubmitting the job: %v", err)
	}
	if first.ID == second.ID {
		t.Fatalf("expected distinct task ids, got %q twice", first.ID)
	}
	if second.Queue != "photos" || second.MaxRetry != 0 {
		t.Fatalf("unexpected task info %+v", second)
	}
}
