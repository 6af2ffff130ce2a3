package evmrpc

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"
)

func transferTx(t *testing.T, token, recipient common.Address, amount *big.Int) *types.Transaction {
	t.Helper()
	data := make([]byte, 68)
	copy(data[:4], erc20TransferID)
	copy(data[16:36], recipient.Bytes())
	amount.FillBytes(data[36:68])
	return types.NewTransaction(0, token, big.NewInt(0), 100000, big.NewInt(1), data)
}

func TestDecodeTransfer(t *testing.T) {
	token := common.HexToAddress("0x2cFc85d8E48F8EAB294be644d9E25C3030863003")
	recipient := common.HexToAddress("0x1111111111111111111111111111111111111111")
	// 10 WLD at 18 decimals.
	amount, _ := new(big.Int).SetString("10000000000000000000", 10)

	tx := transferTx(t, token, recipient, amount)

	tt, ok := DecodeTransfer(tx)
	if !ok {
		t.Fatal("expected transfer to decode")
	}
	if tt.Token != token {
		t.Errorf("token = %s, want %s", tt.Token.Hex(), token.Hex())
	}
	if tt.Recipient != recipient {
		t.Errorf("recipient = %s, want %s", tt.Recipient.Hex(), recipient.Hex())
	}
	if !tt.Amount.Equal(decimal.RequireFromString("10")) {
		t.Errorf("amount = %s, want 10", tt.Amount)
	}
}

func TestDecodeTransferRejectsOtherCalls(t *testing.T) {
	to := common.HexToAddress("0x2cFc85d8E48F8EAB294be644d9E25C3030863003")

	// Plain value transfer, no calldata.
	tx := types.NewTransaction(0, to, big.NewInt(1), 21000, big.NewInt(1), nil)
	if _, ok := DecodeTransfer(tx); ok {
		t.Error("decoded a plain value transfer as a token transfer")
	}

	// Wrong selector.
	data := make([]byte, 68)
	copy(data[:4], []byte{0xde, 0xad, 0xbe, 0xef})
	tx = types.NewTransaction(0, to, big.NewInt(0), 100000, big.NewInt(1), data)
	if _, ok := DecodeTransfer(tx); ok {
		t.Error("decoded an unrelated call as a token transfer")
	}

	// Contract creation has no recipient.
	tx = types.NewContractCreation(0, big.NewInt(0), 100000, big.NewInt(1), data)
	if _, ok := DecodeTransfer(tx); ok {
		t.Error("decoded a contract creation as a token transfer")
	}
}

func TestValidTxHash(t *testing.T) {
	valid := "0x" + "ab12cd34ef56ab12cd34ef56ab12cd34ef56ab12cd34ef56ab12cd34ef56ab12"
	if !ValidTxHash(valid) {
		t.Errorf("valid hash rejected: %s", valid)
	}

	for _, s := range []string{
		"",
		"0x1234",
		"ab12cd34ef56ab12cd34ef56ab12cd34ef56ab12cd34ef56ab12cd34ef56ab12cd",
		"0x" + "zz12cd34ef56ab12cd34ef56ab12cd34ef56ab12cd34ef56ab12cd34ef56ab12",
	} {
		if ValidTxHash(s) {
			t.Errorf("invalid hash accepted: %q", s)
		}
	}
}
