package cmd

import (
	"bytes"
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/nilotic/blockchain/foundation/blockchain/database"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"
)

var (
	url   string
	to    string
	value float64
	fee   float64
)

type submitTransactionRequest struct {
	Sender    string  `json:"sender"`
	Recipient string  `json:"recipient"`
	Amount    float64 `json:"amount"`
	Fee       float64 `json:"fee"`
	TimeStamp int64   `json:"timestamp"`
	Signature string  `json:"signature"`
}

type submitTransactionResponse struct {
	Status string `json:"status"`
	Hash   string `json:"hash"`
}

// sendCmd submits a signed transaction to a running node.
var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send transaction",
	Run: func(cmd *cobra.Command, args []string) {
		privateKey, err := crypto.LoadECDSA(getPrivateKeyPath())
		if err != nil {
			log.Fatal(err)
		}

		sendWithDetails(privateKey)
	},
}

func sendWithDetails(privateKey *ecdsa.PrivateKey) {
	tx, err := database.NewTx(database.AccountID(to), value, fee, false, nil)
	if err != nil {
		log.Fatal(err)
	}

	signedTx, err := tx.Sign(privateKey)
	if err != nil {
		log.Fatal(err)
	}

	req := submitTransactionRequest{
		Sender:    string(signedTx.FromID),
		Recipient: string(signedTx.ToID),
		Amount:    signedTx.Amount,
		Fee:       signedTx.Fee,
		TimeStamp: signedTx.TimeStamp,
		Signature: signedTx.SignatureString(),
	}

	body, err := json.Marshal(req)
	if err != nil {
		log.Fatal(err)
	}

	resp, err := http.Post(fmt.Sprintf("%s/transaction", url), "application/json", bytes.NewBuffer(body))
	if err != nil {
		log.Fatal(err)
	}
	defer resp.Body.Close()

	var result submitTransactionResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		log.Fatal(err)
	}

	fmt.Printf("status: %s hash: %s\n", result.Status, result.Hash)
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().StringVarP(&url, "url", "u", "http://localhost:5000", "Url of the node.")
	sendCmd.Flags().StringVarP(&to, "to", "t", "", "Recipient account address.")
	sendCmd.Flags().Float64VarP(&value, "value", "v", 0, "Amount to send.")
	sendCmd.Flags().Float64VarP(&fee, "fee", "c", 0, "Fee to attach.")
}
