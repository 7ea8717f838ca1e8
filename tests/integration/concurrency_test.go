package integration

import (
	"bytes"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// post fires a raw request from a worker goroutine. It never calls t.FailNow,
// which is only legal on the test goroutine.
func (a *testApp) post(path, token string, body interface{}) (int, error) {
	status, _, err := a.postData(path, token, body)
	return status, err
}

// postData is post that also decodes the response's data object.
func (a *testApp) postData(path, token string, body interface{}) (int, map[string]interface{}, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return 0, nil, err
	}
	req, err := http.NewRequest(http.MethodPost, a.server.URL+path, bytes.NewReader(raw))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	var envelope struct {
		Data map[string]interface{} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, envelope.Data, nil
}

// TestConcurrentSettlements settles 40 games concurrently, each one twice with
// the same outcome. Every request must succeed, each game must be booked
// exactly once, and the treasury total must equal the funding plus the net of
// the settled games.
func TestConcurrentSettlements(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	operator := newAccount(t)
	player := newAccount(t)
	app.login(t, operator)
	app.login(t, player)

	const (
		funds = int64(10_000)
		stake = int64(100)
		games = 40
	)
	treasuryID := app.initialize(t, operator, funds)

	gameIDs := make([]string, games)
	for i := range gameIDs {
		gameIDs[i] = app.createGame(t, player, treasuryID, stake)
	}

	var wg sync.WaitGroup
	var successCount atomic.Int64
	var failCount atomic.Int64

	for i, id := range gameIDs {
		outcome := "HOUSE_WINS"
		if i%2 == 1 {
			outcome = "PLAYER_WINS"
		}
		for dup := 0; dup < 2; dup++ {
			wg.Add(1)
			go func(id, outcome string) {
				defer wg.Done()
				status, err := app.post("/api/v1/games/"+id+"/settle", operator.token, map[string]string{"outcome": outcome})
				if err != nil || status != http.StatusOK {
					failCount.Add(1)
					return
				}
				successCount.Add(1)
			}(id, outcome)
		}
	}
	wg.Wait()

	assert.Equal(t, int64(2*games), successCount.Load())
	assert.Equal(t, int64(0), failCount.Load())

	// pool 200 at 1% => fee 2. House wins credit 98, player wins debit 100.
	const fee = int64(2)
	wins, losses := int64(games/2), int64(games/2)
	wantBalance := funds + wins*(stake-fee) - losses*stake
	wantFees := int64(games) * fee

	got := app.do(t, http.MethodGet, "/api/v1/treasuries/"+treasuryID, "", nil)
	require.Equal(t, http.StatusOK, got.status)
	assert.Equal(t, float64(wantBalance), got.data["balance"])
	assert.Equal(t, float64(0), got.data["escrowed"])
	assert.Equal(t, float64(wantFees), got.data["fee_balance"])

	stats := app.do(t, http.MethodGet, "/api/v1/treasuries/"+treasuryID+"/stats", "", nil)
	require.Equal(t, http.StatusOK, stats.status)
	assert.Equal(t, float64(games), stats.data["games_settled"])
	assert.Equal(t, float64(wins), stats.data["house_wins"])
	assert.Equal(t, float64(losses), stats.data["house_losses"])
	assert.Equal(t, float64(wantFees), stats.data["fees_collected"])
	assert.Equal(t, float64(wantBalance-funds), stats.data["settlement_net"])

	// Conservation: funding + settlement net == principal, fees accrued == fee balance.
	assert.Equal(t, stats.data["total_funded"].(float64)+stats.data["settlement_net"].(float64), got.data["balance"])
}

// TestConcurrentGameCreation opens more games than the treasury can cover at
// once. Each game escrows its house stake under the treasury lock, so exactly
// as many games open as the principal covers.
func TestConcurrentGameCreation(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	operator := newAccount(t)
	player := newAccount(t)
	app.login(t, operator)
	app.login(t, player)

	const (
		funds    = int64(1_000)
		stake    = int64(100)
		attempts = 20
	)
	treasuryID := app.initialize(t, operator, funds)

	var wg sync.WaitGroup
	var created atomic.Int64
	var rejected atomic.Int64
	var unexpected atomic.Int64

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			status, err := app.post("/api/v1/treasuries/"+treasuryID+"/games", player.token, map[string]interface{}{"stake": stake})
			switch {
			case err != nil:
				unexpected.Add(1)
			case status == http.StatusCreated:
				created.Add(1)
			case status == http.StatusUnprocessableEntity:
				rejected.Add(1)
			default:
				unexpected.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, funds/stake, created.Load())
	assert.Equal(t, attempts-funds/stake, rejected.Load())
	assert.Equal(t, int64(0), unexpected.Load())

	got := app.do(t, http.MethodGet, "/api/v1/treasuries/"+treasuryID, "", nil)
	require.Equal(t, http.StatusOK, got.status)
	assert.Equal(t, float64(0), got.data["balance"])
	assert.Equal(t, float64(funds), got.data["escrowed"])
}

// TestConcurrentTopUpsAndClaims interleaves top-ups from many backers with fee
// claims and settlements by the operator. No update may be lost.
func TestConcurrentTopUpsAndClaims(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	operator := newAccount(t)
	app.login(t, operator)
	backers := make([]*account, 5)
	for i := range backers {
		backers[i] = newAccount(t)
		app.login(t, backers[i])
	}

	treasuryID := app.initialize(t, operator, 1_000)
	gameIDs := make([]string, 10)
	for i := range gameIDs {
		gameIDs[i] = app.createGame(t, backers[i%len(backers)], treasuryID, 50)
	}

	const topUpsPerBacker = 4
	var wg sync.WaitGroup
	var failures atomic.Int64

	for _, b := range backers {
		for i := 0; i < topUpsPerBacker; i++ {
			wg.Add(1)
			go func(token string) {
				defer wg.Done()
				status, err := app.post("/api/v1/treasuries/"+treasuryID+"/topup", token, map[string]interface{}{"amount": 10})
				if err != nil || status != http.StatusOK {
					failures.Add(1)
				}
			}(b.token)
		}
	}
	for _, id := range gameIDs {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			status, err := app.post("/api/v1/games/"+id+"/settle", operator.token, map[string]string{"outcome": "HOUSE_WINS"})
			if err != nil || status != http.StatusOK {
				failures.Add(1)
			}
		}(id)
	}
	wg.Wait()
	require.Equal(t, int64(0), failures.Load())

	claim := app.do(t, http.MethodPost, "/api/v1/treasuries/"+treasuryID+"/claim-fees", operator.token, nil)
	require.Equal(t, http.StatusOK, claim.status)
	assert.Equal(t, float64(len(gameIDs)), claim.data["amount"])

	// Each settlement: pool 100 at 1% => fee 1, principal +49.
	wantBalance := int64(1_000) + int64(len(backers)*topUpsPerBacker*10) + int64(len(gameIDs))*49
	got := app.do(t, http.MethodGet, "/api/v1/treasuries/"+treasuryID, "", nil)
	require.Equal(t, http.StatusOK, got.status)
	assert.Equal(t, float64(wantBalance), got.data["balance"])
	assert.Equal(t, float64(0), got.data["escrowed"])
	assert.Equal(t, float64(0), got.data["fee_balance"])
}

// TestConcurrentWithdrawalsWhileGamesOpen races operator withdrawals and fee
// claims against settlements of open games and top-ups. Every settlement must
// succeed whatever order the withdrawals land in, and the money paid out plus
// the money still held must equal the money paid in plus the house's net.
func TestConcurrentWithdrawalsWhileGamesOpen(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	operator := newAccount(t)
	player := newAccount(t)
	app.login(t, operator)
	app.login(t, player)

	const (
		funds  = int64(1_000)
		stake  = int64(50)
		games  = 10
		topUps = 10
		topUp  = int64(10)
	)
	treasuryID := app.initialize(t, operator, funds)
	base := "/api/v1/treasuries/" + treasuryID

	gameIDs := make([]string, games)
	for i := range gameIDs {
		gameIDs[i] = app.createGame(t, player, treasuryID, stake)
	}

	var wg sync.WaitGroup
	var failures atomic.Int64
	var paidOut atomic.Int64

	for i, id := range gameIDs {
		outcome := "HOUSE_WINS"
		if i%2 == 1 {
			outcome = "PLAYER_WINS"
		}
		wg.Add(1)
		go func(id, outcome string) {
			defer wg.Done()
			status, err := app.post("/api/v1/games/"+id+"/settle", operator.token, map[string]string{"outcome": outcome})
			if err != nil || status != http.StatusOK {
				failures.Add(1)
			}
		}(id, outcome)
	}
	for i := 0; i < 5; i++ {
		for _, action := range []string{"/withdraw", "/claim-fees"} {
			wg.Add(1)
			go func(path string) {
				defer wg.Done()
				status, data, err := app.postData(path, operator.token, nil)
				if err != nil || status != http.StatusOK {
					failures.Add(1)
					return
				}
				paidOut.Add(int64(data["amount"].(float64)))
			}(base + action)
		}
	}
	for i := 0; i < topUps; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			status, err := app.post(base+"/topup", player.token, map[string]interface{}{"amount": topUp})
			if err != nil || status != http.StatusOK {
				failures.Add(1)
			}
		}()
	}
	wg.Wait()
	require.Equal(t, int64(0), failures.Load())

	for _, id := range gameIDs {
		game := app.do(t, http.MethodGet, "/api/v1/games/"+id, "", nil)
		require.Equal(t, http.StatusOK, game.status)
		assert.Equal(t, "SETTLED", game.data["status"])
	}

	// pool 100 at 1% => fee 1. A house win nets +50, a player win -49.
	houseNet := int64(games/2)*50 - int64(games/2)*49

	got := app.do(t, http.MethodGet, base, "", nil)
	require.Equal(t, http.StatusOK, got.status)
	assert.Equal(t, float64(0), got.data["escrowed"])
	assert.Equal(t, float64(funds+topUps*topUp+houseNet-paidOut.Load()), got.data["total"])

	stats := app.do(t, http.MethodGet, base+"/stats", "", nil)
	require.Equal(t, http.StatusOK, stats.status)
	assert.Equal(t, float64(paidOut.Load()), stats.data["total_withdrawn"].(float64)+stats.data["total_claimed"].(float64))
}
