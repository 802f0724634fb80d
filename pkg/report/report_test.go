package report

import (
	"context"
	"sync"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
)

func TestCollector(t *testing.T) {
	c := NewCollector()
	c.Addf(WarningTruncated, "haltung", "bezeichnung", "ch000000000001", "cut to %d characters", 20)
	c.Add(Warning{Kind: WarningFKDropped, Class: "haltung", Field: "vonhaltungspunktref", Message: "not exported"})
	c.Add(Warning{Kind: WarningFKDropped, Class: "haltung", Field: "nachhaltungspunktref", Message: "not exported"})

	assert.Equal(t, 3, c.Len())
	assert.Equal(t, map[WarningKind]int{WarningTruncated: 1, WarningFKDropped: 2}, c.Counts())
	assert.Equal(t, "cut to 20 characters", c.Warnings()[0].Message)
	assert.Equal(t, "[truncated] haltung.bezeichnung (ch000000000001): cut to 20 characters", c.Warnings()[0].String())
}

func TestFlush(t *testing.T) {
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})

	c := NewCollector()
	c.Addf(WarningUnresolved, "kanal", "nutzungsart_ist", "k1", "unknown code %d", 99)

	flushed := c.Flush(context.Background(), logger)
	assert.Len(t, flushed, 1)
	assert.Zero(t, c.Len())
	assert.Equal(t, "unknown code 99", flushed[0].Message)

	assert.Empty(t, c.Flush(context.Background(), logger))
}

func TestCollectorConcurrent(t *testing.T) {
	c := NewCollector()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Addf(WarningClamped, "haltung", "laengeeffektiv", "", "clamped")
		}()
	}
	wg.Wait()
	assert.Equal(t, 20, c.Len())
}
