package universe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PivotScreener/internal/model"
)

const listingHTML = `<html><body>
<p>Underlyings</p>
<table>
  <thead><tr><th>Sr</th><th>Symbol</th><th>Name</th></tr></thead>
  <tbody>
    <tr><td>1</td><td> RELIANCE </td><td>Reliance Industries</td></tr>
    <tr><td>2</td><td><a href="#">tcs</a></td><td>Tata Consultancy</td></tr>
    <tr><td>only-one-cell</td></tr>
    <tr><td>3</td><td>   </td><td>blank</td></tr>
    <tr><td>4</td><td>RELIANCE</td><td>dup</td></tr>
    <tr><td>5</td><td>INFY</td><td>Infosys</td></tr>
  </tbody>
</table>
<table><tr><td>x</td><td>SECOND_TABLE</td></tr></table>
</body></html>`

func TestParseListing(t *testing.T) {
	raw, err := ParseListing(strings.NewReader(listingHTML))
	require.NoError(t, err)
	assert.Equal(t, []string{"RELIANCE", "tcs", "RELIANCE", "INFY"}, raw)
}

func TestParseListing_NoTable(t *testing.T) {
	_, err := ParseListing(strings.NewReader(`<html><body><p>maintenance</p></body></html>`))
	assert.Error(t, err)
}

func TestNSEProvider_Fetch(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.UserAgent(), "Mozilla/5.0")
		if hits.Add(1) == 1 {
			http.SetCookie(w, &http.Cookie{Name: "nsit", Value: "abc"})
			w.Write([]byte("<html></html>"))
			return
		}
		if c, err := r.Cookie("nsit"); err != nil || c.Value != "abc" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(listingHTML))
	}))
	defer srv.Close()

	p := NewNSEProvider(srv.URL, ".NS", "Mozilla/5.0 (Windows NT 10.0; Win64; x64)", "")
	symbols, err := p.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"RELIANCE.NS", "TCS.NS", "INFY.NS"}, symbols)
	assert.Equal(t, int32(2), hits.Load())
}

func TestNSEProvider_FailsSoft(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"forbidden": func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusForbidden) },
		"no table":  func(w http.ResponseWriter, r *http.Request) { w.Write([]byte("<html></html>")) },
		"header only": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("<table><tr><th>a</th><th>b</th></tr></table>"))
		},
	}
	for name, h := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(h)
			defer srv.Close()

			symbols, err := NewNSEProvider(srv.URL, ".NS", "ua", "").Fetch(context.Background())
			assert.ErrorIs(t, err, model.ErrUniverseUnavailable)
			assert.Nil(t, symbols)
		})
	}
}

func TestNSEProvider_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	_, err := NewNSEProvider(srv.URL, ".NS", "ua", "").Fetch(context.Background())
	assert.ErrorIs(t, err, model.ErrUniverseUnavailable)
}

func TestStaticProvider(t *testing.T) {
	p := NewStaticProvider([]string{"sbin", "SBIN.NS", " ", "hdfcbank"}, ".NS")
	symbols, err := p.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"SBIN.NS", "HDFCBANK.NS"}, symbols)

	_, err = NewStaticProvider(nil, ".NS").Fetch(context.Background())
	assert.ErrorIs(t, err, model.ErrUniverseUnavailable)
}

func TestDisplaySymbol(t *testing.T) {
	assert.Equal(t, "RELIANCE", DisplaySymbol("RELIANCE.NS", ".NS"))
	assert.Equal(t, "AAPL", DisplaySymbol("AAPL", ".NS"))
	assert.Equal(t, "AAPL", DisplaySymbol("AAPL", ""))
}
