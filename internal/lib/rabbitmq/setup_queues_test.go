package rabbitmq

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetNotificationQueues(t *testing.T) {
	queues := GetNotificationQueues()

	require.Len(t, queues, 3)

	seenQueues := map[string]bool{}
	seenKeys := map[string]bool{}
	for _, q := range queues {
		assert.Falsef(t, seenQueues[q.QueueName], "duplicate queue name: %s", q.QueueName)
		assert.Falsef(t, seenKeys[q.RoutingKey], "duplicate routing key: %s", q.RoutingKey)
		seenQueues[q.QueueName] = true
		seenKeys[q.RoutingKey] = true
	}
	assert.True(t, seenKeys[RoutingPasswordReset])
	assert.True(t, seenKeys[RoutingTrialEnding])
	assert.True(t, seenKeys[RoutingPeriodEnding])
}
