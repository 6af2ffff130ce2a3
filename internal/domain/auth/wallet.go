package auth

import (
	"fmt"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// SignInMessage is the text a wallet signs to prove ownership.
func SignInMessage(nonce string) string {
	return fmt.Sprintf("Sign in to Luna Predict\n\nNonce: %s", nonce)
}

// RecoverSigner recovers the address that produced an EIP-191 personal
// signature over message.
func RecoverSigner(message, signature string) (common.Address, error) {
	sig, err := hexutil.Decode(signature)
	if err != nil {
		return common.Address{}, ErrInvalidSignature
	}
	if len(sig) != 65 {
		return common.Address{}, ErrInvalidSignature
	}

	// Wallets return V as 27/28, go-ethereum expects 0/1.
	if sig[64] >= 27 {
		sig[64] -= 27
	}

	hash := accounts.TextHash([]byte(message))
	pub, err := crypto.SigToPub(hash, sig)
	if err != nil {
		return common.Address{}, ErrInvalidSignature
	}
	return crypto.PubkeyToAddress(*pub), nil
}
