package realtime_test

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/p-n-ai/pai-planner/internal/realtime"
)

func TestNewRedisBroker_Validation(t *testing.T) {
	hub := realtime.NewHub(1)
	client := redis.NewClient(&redis.Options{Addr: "localhost:0"})
	defer client.Close()

	if _, err := realtime.NewRedisBroker(nil, "", hub); err == nil {
		t.Error("expected error for nil client")
	}
	if _, err := realtime.NewRedisBroker(client, "", nil); err == nil {
		t.Error("expected error for nil hub")
	}
	if _, err := realtime.NewRedisBroker(client, "", hub); err != nil {
		t.Errorf("NewRedisBroker() error = %v", err)
	}
}

func startRedis(t *testing.T) *redis.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping redis container test in short mode")
	}

	ctx := t.Context()
	ctr, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	testcontainers.CleanupContainer(t, ctr)
	if err != nil {
		t.Fatalf("start redis container: %v", err)
	}

	endpoint, err := ctr.Endpoint(ctx, "")
	if err != nil {
		t.Fatalf("redis endpoint: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: endpoint})
	t.Cleanup(func() { client.Close() })
	return client
}

func TestRedisBroker_RelaysAcrossInstances(t *testing.T) {
	client := startRedis(t)

	// Two hubs stand in for two server instances sharing one Redis.
	hubA, hubB := realtime.NewHub(4), realtime.NewHub(4)
	brokerA, err := realtime.NewRedisBroker(client, "test:progress", hubA)
	if err != nil {
		t.Fatalf("NewRedisBroker() error = %v", err)
	}
	brokerB, err := realtime.NewRedisBroker(client, "test:progress", hubB)
	if err != nil {
		t.Fatalf("NewRedisBroker() error = %v", err)
	}

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 2)
	go func() { done <- brokerA.Run(ctx) }()
	go func() { done <- brokerB.Run(ctx) }()

	subB := hubB.Subscribe("alice")
	defer subB.Close()

	deadline := time.Now().Add(5 * time.Second)
	for {
		n, err := client.PubSubNumSub(ctx, "test:progress").Result()
		if err != nil {
			t.Fatalf("PubSubNumSub() error = %v", err)
		}
		if n["test:progress"] == 2 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("relays did not subscribe in time")
		}
		time.Sleep(10 * time.Millisecond)
	}

	if err := brokerA.NotifyProgress(ctx, progressEvent("alice", "t1", 75)); err != nil {
		t.Fatalf("NotifyProgress() error = %v", err)
	}
	if ev := recv(t, subB.C()); ev.TopicID != "t1" || ev.Progress.ProgressPercentage != 75 {
		t.Errorf("event = %+v, want t1 at 75%%", ev)
	}

	cancel()
	for range 2 {
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("Run() error = %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Fatal("Run() did not return after cancel")
		}
	}
}
