package importer

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestReporter(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	var out bytes.Buffer
	r := NewReporter(&out, zap.New(core))

	r.Warn("0001", "Broken image URL: http://x, skipping asset")
	r.Warn("0002", "Product was not saved: boom")

	assert.Equal(t,
		"GTIN: 0001 - Broken image URL: http://x, skipping asset\n"+
			"GTIN: 0002 - Product was not saved: boom\n",
		out.String(),
	)
	assert.Equal(t, 2, r.Count())
	assert.Equal(t, 2, logs.Len())
	assert.Equal(t, "0001", logs.All()[0].ContextMap()["gtin"])
}
