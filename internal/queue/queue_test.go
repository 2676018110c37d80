package queue

import (
    "context"
    "errors"
    "os"
    "path/filepath"
    "strings"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func Test_Retry_WhenFunctionRecovers_ShouldSucceed(t *testing.T) {
    calls := 0
    err := retry(context.Background(), func(context.Context) error {
        calls++
        if calls < 3 {
            return errors.New("broker unavailable")
        }
        return nil
    }, WithBaseDelay(time.Millisecond))

    require.NoError(t, err)
    assert.Equal(t, 3, calls)
}

func Test_Retry_WhenErrorIsPermanent_ShouldStopImmediately(t *testing.T) {
    calls := 0
    boom := errors.New("bad payload")
    err := retry(context.Background(), func(context.Context) error {
        calls++
        return Permanent(boom)
    })

    assert.ErrorIs(t, err, boom)
    assert.Equal(t, 1, calls)
}

func Test_Retry_WhenAttemptsExhausted_ShouldReturnLastError(t *testing.T) {
    calls := 0
    err := retry(context.Background(), func(context.Context) error {
        calls++
        return errors.New("still down")
    }, WithMaxAttempts(3), WithBaseDelay(0))

    assert.EqualError(t, err, "still down")
    assert.Equal(t, 3, calls)
}

func Test_Retry_WhenOptionInvalid_ShouldFail(t *testing.T) {
    err := retry(context.Background(), func(context.Context) error { return nil }, WithJitterFactor(2))
    assert.ErrorIs(t, err, ErrInvalidJitterFactor)
}

func Test_FormatLine_ShouldRenderEnvelope(t *testing.T) {
    ev := NewEvent(TypeLoanReturned, BookReturnedEvent{LoanID: 4, StudentID: 9, BookID: 2, Fine: 30})
    ev.OccurredAt = time.Date(2024, 5, 10, 8, 0, 0, 0, time.UTC)
    body, err := json.Marshal(ev)
    require.NoError(t, err)

    line, err := FormatLine(body)

    require.NoError(t, err)
    assert.True(t, strings.HasPrefix(line, "[2024-05-10T08:00:00Z] loan.returned | id="+ev.ID))
    assert.Contains(t, line, `"loan_id":4`)
    assert.True(t, strings.HasSuffix(line, "\n"))
}

func Test_FormatLine_WhenBodyIsGarbage_ShouldFail(t *testing.T) {
    _, err := FormatLine([]byte("not json"))
    assert.Error(t, err)

    _, err = FormatLine([]byte(`{"id":"x"}`))
    assert.Error(t, err)
}

func Test_ConsumerHandle_ShouldAppendToLogFile(t *testing.T) {
    dir := t.TempDir()
    c := NewConsumer("amqp://unused", "circulation.events", dir, nil)
    body, err := json.Marshal(NewEvent(TypeWaitlistPromoted, WaitlistPromotedEvent{BookID: 1, StudentID: 2}))
    require.NoError(t, err)

    require.NoError(t, c.handle(body))
    require.NoError(t, c.handle(body))

    raw, err := os.ReadFile(filepath.Join(dir, LogFileName))
    require.NoError(t, err)
    assert.Equal(t, 2, strings.Count(string(raw), "waitlist.promoted"))
}
