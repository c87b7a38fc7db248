package smpp

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/go-smpp/internal/smsctest"
	"github.com/arloliu/go-smpp/pdu"
)

func TestRun(t *testing.T) {
	require := require.New(t)

	srv := newTestServer(t,
		smsctest.WithReceipts(),
		smsctest.WithSubmitStatus(func(n uint64, _ *pdu.SubmitSm) pdu.CommandStatus {
			if n == 2 {
				return pdu.StatusThrottled
			}
			return pdu.StatusOK
		}),
	)

	msgs := []OutboundMessage{
		{Source: "ACME", Destination: "886912345671", Content: "first"},
		{Source: "ACME", Destination: "886912345672", Content: "second"},
		{Source: "ACME", Destination: strings.Repeat("9", 21), Content: "bad address"},
		{Source: "ACME", Destination: "886912345674", Content: "fourth"},
	}

	outcome, results := Run(testContext(t), testCreds(srv.Addr()), msgs,
		WithEnquireLinkInterval(0),
		WithReceiptWait(2*time.Second),
	)

	require.True(outcome.OK(), outcome.String())
	require.Equal(ReasonNormal, outcome.Reason)
	require.Len(results, len(msgs))

	require.True(results[0].OK())
	require.NotNil(results[0].Receipt)
	require.Equal(results[0].MessageID, results[0].Receipt.MessageID)

	var submitErr *SubmitError
	require.ErrorAs(results[1].Err, &submitErr)
	require.Equal(pdu.StatusThrottled, submitErr.Status)
	require.Nil(results[1].Receipt)

	var cfgErr *ConfigError
	require.ErrorAs(results[2].Err, &cfgErr)

	require.True(results[3].OK())
	require.NotNil(results[3].Receipt)
	require.Equal(pdu.StateDelivered, results[3].Receipt.Stat)

	// the invalid message never reached the wire
	require.Len(srv.FramesOf(pdu.SubmitSmID), 3)
	require.Len(srv.FramesOf(pdu.UnbindID), 1)
}

func TestRun_BindRejected(t *testing.T) {
	require := require.New(t)

	srv := newTestServer(t, smsctest.WithBindStatus(pdu.StatusInvPaswd))

	msgs := []OutboundMessage{
		{Destination: "1", Content: "a"},
		{Destination: "2", Content: "b"},
	}
	outcome, results := Run(testContext(t), testCreds(srv.Addr()), msgs, WithEnquireLinkInterval(0))

	require.Equal(OutcomeAuthenticationFailed, outcome.Kind)
	require.Equal(ReasonAuthFailed, outcome.Reason)
	for _, res := range results {
		var authErr *AuthenticationError
		require.ErrorAs(res.Err, &authErr)
		require.Equal(pdu.StatusInvPaswd, authErr.Status)
	}

	require.Empty(srv.FramesOf(pdu.SubmitSmID))
}
