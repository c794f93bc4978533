// Copyright (c) 2025 The Vetrix developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNoopMetrics(t *testing.T) {
	metrics = defaultNoopMetrics()

	server := httptest.NewServer(HTTPHandler())
	t.Cleanup(func() {
		server.Close()
	})

	// measurements against the no-op backend must not blow up
	Counter("count1").Add(1)
	CounterVec("countVec1", []string{"side"}).
		AddWithLabel(2, map[string]string{"thisIsNonsense": "butDoesntBreak"})
	gauge := Gauge("gauge1")
	gauge.Add(3)
	gauge.Set(4)
	gaugeVec := GaugeVec("gaugeVec1", []string{"side"})
	gaugeVec.AddWithLabel(5, map[string]string{"thisIsNonsense": "butDoesntBreak"})
	gaugeVec.SetWithLabel(6, map[string]string{"thisIsNonsense": "butDoesntBreak"})

	// nothing is exported either
	resp, err := http.Get(server.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, 404, resp.StatusCode)
}
