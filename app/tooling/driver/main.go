// This program drives a transaction scenario against a set of running nodes.
// The scenario file names the sending node, the receiving node, the amount
// and the fee for each transaction. Sending goes through the node's own
// account, so no keys are needed here.
package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/agrimkaushik/powledger/foundation/logger"
	"github.com/ardanlabs/conf/v3"
	"go.uber.org/zap"
)

// build is the git version of this program. It is set using build flags in the makefile.
var build = "develop"

func main() {

	// Construct the application logger.
	log, err := logger.New("DRIVER")
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer log.Sync()

	// Perform the startup and shutdown sequence.
	if err := run(log); err != nil {
		log.Errorw("startup", "ERROR", err)
		log.Sync()
		os.Exit(1)
	}
}

// scenario is the file format describing the transactions to run.
type scenario struct {
	Transactions []scenarioTx `json:"transactions"`
}

// scenarioTx is one transaction in the scenario. Delay is in seconds and is
// taken before the transaction is sent. Parallel transactions don't block
// the ones after them.
type scenarioTx struct {
	FromURL  string `json:"from_url"`
	ToURL    string `json:"to_url"`
	Amount   uint64 `json:"amount"`
	Fee      uint64 `json:"fee"`
	Delay    int    `json:"delay"`
	Parallel bool   `json:"parallel"`
}

func run(log *zap.SugaredLogger) error {

	// =========================================================================
	// Configuration

	cfg := struct {
		conf.Version
		Scenario string `conf:"default:zblock/scenario.json"`
	}{
		Version: conf.Version{
			Build: build,
			Desc:  "transaction scenario driver",
		},
	}

	const prefix = "DRIVER"
	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	// =========================================================================
	// Load Scenario

	content, err := os.ReadFile(cfg.Scenario)
	if err != nil {
		return fmt.Errorf("unable to load scenario file: %w", err)
	}

	var scn scenario
	if err := json.Unmarshal(content, &scn); err != nil {
		return fmt.Errorf("unable to parse scenario file: %w", err)
	}

	if len(scn.Transactions) == 0 {
		return errors.New("scenario holds no transactions")
	}

	log.Infow("scenario loaded", "file", cfg.Scenario, "transactions", len(scn.Transactions))

	// =========================================================================
	// Resolve Accounts

	// Ask every receiving node for its account id once up front.
	accounts := make(map[string]string)
	for _, tx := range scn.Transactions {
		if _, exists := accounts[tx.ToURL]; exists {
			continue
		}

		account, err := nodeAccount(tx.ToURL)
		if err != nil {
			return fmt.Errorf("unable to resolve account for node %s: %w", tx.ToURL, err)
		}

		accounts[tx.ToURL] = account
		log.Infow("resolved", "node", tx.ToURL, "account", account)
	}

	// =========================================================================
	// Run Transactions

	var wg sync.WaitGroup
	defer wg.Wait()

	for i, tx := range scn.Transactions {
		if tx.Delay > 0 {
			log.Infow("waiting", "seconds", tx.Delay)
			time.Sleep(time.Duration(tx.Delay) * time.Second)
		}

		log.Infow("transaction", "number", i+1, "of", len(scn.Transactions), "from", tx.FromURL, "to", tx.ToURL, "amount", tx.Amount, "fee", tx.Fee, "parallel", tx.Parallel)

		if tx.Parallel {
			wg.Add(1)
			go func(tx scenarioTx) {
				defer wg.Done()
				if err := submit(tx, accounts[tx.ToURL]); err != nil {
					log.Errorw("transaction", "ERROR", err)
				}
			}(tx)
		} else {
			if err := submit(tx, accounts[tx.ToURL]); err != nil {
				log.Errorw("transaction", "ERROR", err)
			}
		}

		// A small gap between requests keeps the ordering legible in the
		// node logs.
		time.Sleep(100 * time.Millisecond)
	}

	log.Infow("scenario complete", "transactions", len(scn.Transactions))

	return nil
}

// =============================================================================

// nodeAccount asks the node's public API which account it runs on.
func nodeAccount(url string) (string, error) {
	resp, err := http.Get(fmt.Sprintf("%s/v1/info", url))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("info call returned status %d", resp.StatusCode)
	}

	var nfo struct {
		Account string `json:"account"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&nfo); err != nil {
		return "", err
	}

	return nfo.Account, nil
}

// submit asks the sending node to build, sign and submit the transaction
// from its own account.
func submit(tx scenarioTx, toAccount string) error {
	payload := struct {
		To     string `json:"to"`
		Amount uint64 `json:"amount"`
		Fee    uint64 `json:"fee"`
	}{
		To:     toAccount,
		Amount: tx.Amount,
		Fee:    tx.Fee,
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	resp, err := http.Post(fmt.Sprintf("%s/v1/tx/send", tx.FromURL), "application/json", bytes.NewBuffer(data))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("send call returned status %d: %s", resp.StatusCode, msg)
	}

	return nil
}
