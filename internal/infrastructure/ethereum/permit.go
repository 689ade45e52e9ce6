package ethereum

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"

	"github.com/bimakw/nadfun-gateway/internal/domain/entities"
)

// ErrInvalidSignature is returned when a signature is not 65 bytes
var ErrInvalidSignature = errors.New("signature must be 65 bytes")

// PermitDomain is the EIP-712 domain of an EIP-2612 token
type PermitDomain struct {
	Name    string
	Version string
	ChainID *big.Int
	Token   common.Address
}

// PermitTypedData builds the typed data signed for an EIP-2612 permit
func PermitTypedData(domain PermitDomain, owner, spender common.Address, value, nonce, deadline *big.Int) apitypes.TypedData {
	return apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": {
				{Name: "name", Type: "string"},
				{Name: "version", Type: "string"},
				{Name: "chainId", Type: "uint256"},
				{Name: "verifyingContract", Type: "address"},
			},
			"Permit": {
				{Name: "owner", Type: "address"},
				{Name: "spender", Type: "address"},
				{Name: "value", Type: "uint256"},
				{Name: "nonce", Type: "uint256"},
				{Name: "deadline", Type: "uint256"},
			},
		},
		PrimaryType: "Permit",
		Domain: apitypes.TypedDataDomain{
			Name:              domain.Name,
			Version:           domain.Version,
			ChainId:           (*math.HexOrDecimal256)(new(big.Int).Set(domain.ChainID)),
			VerifyingContract: domain.Token.Hex(),
		},
		Message: apitypes.TypedDataMessage{
			"owner":    owner.Hex(),
			"spender":  spender.Hex(),
			"value":    value.String(),
			"nonce":    nonce.String(),
			"deadline": deadline.String(),
		},
	}
}

// PermitHash returns the EIP-712 digest of a permit
func PermitHash(domain PermitDomain, owner, spender common.Address, value, nonce, deadline *big.Int) ([]byte, error) {
	hash, _, err := apitypes.TypedDataAndHash(PermitTypedData(domain, owner, spender, value, nonce, deadline))
	if err != nil {
		return nil, fmt.Errorf("failed to hash permit: %w", err)
	}
	return hash, nil
}

// SignPermit signs an EIP-2612 permit with key and returns it with v, r and s filled in
func SignPermit(key *ecdsa.PrivateKey, domain PermitDomain, spender common.Address, value, nonce, deadline *big.Int) (*entities.Permit, error) {
	owner := crypto.PubkeyToAddress(key.PublicKey)

	hash, err := PermitHash(domain, owner, spender, value, nonce, deadline)
	if err != nil {
		return nil, err
	}

	sig, err := crypto.Sign(hash, key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign permit: %w", err)
	}

	v, r, s, err := SplitSignature(sig)
	if err != nil {
		return nil, err
	}

	return &entities.Permit{
		Owner:    owner.Hex(),
		Spender:  spender.Hex(),
		Value:    value,
		Nonce:    nonce,
		Deadline: deadline,
		V:        v,
		R:        r,
		S:        s,
	}, nil
}

// SplitSignature splits a 65-byte [R || S || V] signature.
// V is normalized to 27/28.
func SplitSignature(sig []byte) (v uint8, r, s [32]byte, err error) {
	if len(sig) != crypto.SignatureLength {
		return 0, r, s, ErrInvalidSignature
	}

	copy(r[:], sig[:32])
	copy(s[:], sig[32:64])
	v = sig[64]
	if v < 27 {
		v += 27
	}
	return v, r, s, nil
}
