//go:build integration

package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/eric2969/OR2025-Final/core/model"
	coremqtt "github.com/eric2969/OR2025-Final/core/mqtt"
	"github.com/eric2969/OR2025-Final/infra/logger"
)

func startMosquitto(t *testing.T) string {
	t.Helper()
	if os.Getenv("DOCKER_AVAILABLE") != "true" && os.Getenv("DOCKER_AVAILABLE") != "1" {
		t.Skip("docker not available")
	}
	ctx := context.Background()
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: tc.ContainerRequest{
			Image:        "eclipse-mosquitto:2.0",
			ExposedPorts: []string{"1883/tcp"},
			Cmd:          []string{"mosquitto", "-c", "/mosquitto-no-auth.conf"},
			WaitingFor:   wait.ForListeningPort("1883/tcp"),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("failed to start container: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Errorf("failed to terminate container: %v", err)
		}
	})
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("failed to get container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "1883")
	if err != nil {
		t.Fatalf("failed to get mapped port: %v", err)
	}
	return fmt.Sprintf("tcp://%s:%s", host, port.Port())
}

// TestPublishPlanIntegration publishes a plan through a real broker with a
// depot that acknowledges every order.
func TestPublishPlanIntegration(t *testing.T) {
	broker := startMosquitto(t)

	depot := paho.NewClient(paho.NewClientOptions().AddBroker(broker).SetClientID("depot"))
	if tok := depot.Connect(); tok.Wait() && tok.Error() != nil {
		t.Fatalf("depot connect: %v", tok.Error())
	}
	defer depot.Disconnect(100)
	received := make(chan coremqtt.Order, 4)
	tok := depot.Subscribe("it/orders/#", 1, func(c paho.Client, m paho.Message) {
		var o coremqtt.Order
		if err := json.Unmarshal(m.Payload(), &o); err != nil {
			return
		}
		received <- o
		ack, _ := json.Marshal(map[string]string{"command_id": o.CommandID})
		c.Publish("it/ack", 1, false, ack)
	})
	if tok.Wait() && tok.Error() != nil {
		t.Fatalf("depot subscribe: %v", tok.Error())
	}

	var cli *PahoClient
	var err error
	for i := 0; i < 5; i++ {
		cli, err = NewPahoClient(Config{Broker: broker, ClientID: "planner", TopicPrefix: "it/orders", AckTopic: "it/ack", QoS: map[string]byte{"order": 1, "ack": 1}})
		if err == nil {
			break
		}
		time.Sleep(500 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer cli.Disconnect()
	time.Sleep(200 * time.Millisecond)

	plan := &model.Plan{
		Transfers: []model.Transfer{{Period: 0, Label: "08:00", FromID: "A", ToID: "B", Quantity: 10}},
		Hides:     []model.HideEvent{{Period: 1, Label: "08:30", StationID: "C", Hidden: 2}},
	}
	rep, err := coremqtt.PublishPlan(context.Background(), cli, "it-run", plan, 5*time.Second, logger.NopLogger{})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if rep.Sent != 2 || rep.Acked != 2 {
		t.Fatalf("unexpected report %+v", rep)
	}
	first := <-received
	if first.Period != "08:00" || first.Transfers[0].Quantity != 10 {
		t.Fatalf("unexpected order %+v", first)
	}
}
