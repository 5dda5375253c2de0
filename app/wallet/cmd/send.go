package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/agrimkaushik/powledger/foundation/blockchain/database"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"
)

var (
	to     string
	amount uint64
	fee    uint64
)

// sendCmd represents the send command.
var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Sign and submit a transaction to the node",
	Run: func(cmd *cobra.Command, args []string) {
		privateKey, err := crypto.LoadECDSA(getPrivateKeyPath())
		if err != nil {
			log.Fatal(err)
		}

		fromID := database.PublicKeyToAccountID(privateKey.PublicKey)
		toID, err := database.ToAccountID(to)
		if err != nil {
			log.Fatal(err)
		}

		// The transaction has to carry the chain id of the network the node
		// runs on, so ask the node.
		chainID, err := nodeChainID()
		if err != nil {
			log.Fatal(err)
		}

		tx, err := database.NewTx(chainID, fromID, toID, amount, fee)
		if err != nil {
			log.Fatal(err)
		}

		signedTx, err := tx.Sign(privateKey)
		if err != nil {
			log.Fatal(err)
		}

		data, err := json.Marshal(signedTx)
		if err != nil {
			log.Fatal(err)
		}

		resp, err := http.Post(fmt.Sprintf("%s/v1/tx/submit", url), "application/json", bytes.NewBuffer(data))
		if err != nil {
			log.Fatal(err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			log.Fatal(err)
		}

		fmt.Println(string(body))
	},
}

// nodeChainID asks the node's public API for the chain id in its genesis.
func nodeChainID() (uint16, error) {
	resp, err := http.Get(fmt.Sprintf("%s/v1/genesis/list", url))
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	var gen struct {
		ChainID uint16 `json:"chain_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&gen); err != nil {
		return 0, err
	}

	return gen.ChainID, nil
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().StringVarP(&to, "to", "t", "", "Account to send to.")
	sendCmd.MarkFlagRequired("to")
	sendCmd.Flags().Uint64VarP(&amount, "amount", "m", 0, "Amount to send.")
	sendCmd.MarkFlagRequired("amount")
	sendCmd.Flags().Uint64VarP(&fee, "fee", "f", 0, "Fee offered to the miner.")
}
