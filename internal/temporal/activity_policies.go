package temporal

import (
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

const (
	ActivityPolicyLoadNote         = "load_note"
	ActivityPolicyGenerateReply    = "generate_reply"
	ActivityPolicySnapshotNote     = "snapshot_note"
	ActivityPolicyApplyEnhancement = "apply_enhancement"
	ActivityPolicyRecordOutcome    = "record_outcome"
)

type activityPolicy struct {
	StartToCloseTimeout time.Duration
	RetryPolicy         temporal.RetryPolicy
}

var storageRetry = temporal.RetryPolicy{
	InitialInterval:    1 * time.Second,
	BackoffCoefficient: 2,
	MaximumInterval:    10 * time.Second,
	MaximumAttempts:    3,
}

var activityPolicies = map[string]activityPolicy{
	ActivityPolicyLoadNote: {
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy:         storageRetry,
	},
	// The generation activity retries inside callOpenAIWithRetry.
	ActivityPolicyGenerateReply: {
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy: temporal.RetryPolicy{
			MaximumAttempts: 1,
		},
	},
	ActivityPolicySnapshotNote: {
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy:         storageRetry,
	},
	ActivityPolicyApplyEnhancement: {
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy:         storageRetry,
	},
	ActivityPolicyRecordOutcome: {
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy:         storageRetry,
	},
}

func ActivityOptionsFor(policyName string) (workflow.ActivityOptions, error) {
	policy, ok := activityPolicies[policyName]
	if !ok {
		return workflow.ActivityOptions{}, fmt.Errorf("unknown activity policy: %s", policyName)
	}

	retry := policy.RetryPolicy
	return workflow.ActivityOptions{
		StartToCloseTimeout: policy.StartToCloseTimeout,
		RetryPolicy:         &retry,
	}, nil
}

func mustActivityContext(ctx workflow.Context, policyName string) workflow.Context {
	ao, err := ActivityOptionsFor(policyName)
	if err != nil {
		panic(err)
	}
	return workflow.WithActivityOptions(ctx, ao)
}
