package metrics

import (
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MyuraASM/netcore"
)

func TestServerExposesResponderMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := netcore.NewMetrics(reg)
	m.Replies.WithLabelValues("arp").Add(2)

	l := logrus.New()
	l.SetOutput(io.Discard)

	s := NewServer("127.0.0.1:0", "", reg, l)
	require.NoError(t, s.Start())
	t.Cleanup(func() { _ = s.Stop(context.Background()) })

	resp, err := http.Get("http://" + s.Addr().String() + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `netcore_replies_total{protocol="arp"} 2`)
}

func TestServerStopBeforeStart(t *testing.T) {
	s := NewServer("127.0.0.1:0", "/m", prometheus.NewRegistry(), nil)
	assert.Nil(t, s.Addr())
	assert.NoError(t, s.Stop(context.Background()))
}

func TestServerStartBadAddr(t *testing.T) {
	s := NewServer("256.0.0.1:http", "", prometheus.NewRegistry(), nil)
	assert.Error(t, s.Start())
}
