package confidential

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/iden3/go-iden3-crypto/poseidon"

	"github.com/darkswap-labs/batchswap/crypto/ecc"
)

// TransferProof is a sigma proof of plaintext knowledge for a ciphertext: it
// proves the prover knows (m, k) such that C1 = k*G and C2 = m*G + k*P,
// without revealing either. The challenge is derived with Poseidon over the
// public key, the ciphertext and the commitments, making the proof
// non-interactive. Numeric fairness of a distribution is NOT established by
// this proof: it binds each output to a well-formed encryption, nothing more.
type TransferProof struct {
	A1 ecc.Point `json:"a1"`
	A2 ecc.Point `json:"a2"`
	Zk *big.Int  `json:"zk"`
	Zm *big.Int  `json:"zm"`
}

// ProveTransfer builds a TransferProof for the ciphertext ct encrypting m
// with randomness k under the public key.
func ProveTransfer(publicKey ecc.Point, ct *Ciphertext, m, k *big.Int) (*TransferProof, error) {
	order := publicKey.Order()
	rk, err := RandK()
	if err != nil {
		return nil, err
	}
	rm, err := RandK()
	if err != nil {
		return nil, err
	}
	// A1 = rk*G
	a1 := publicKey.New()
	a1.ScalarBaseMult(rk)
	// A2 = rm*G + rk*P
	a2 := publicKey.New()
	a2.ScalarBaseMult(rm)
	rkP := publicKey.New()
	rkP.ScalarMult(publicKey, rk)
	a2.Add(a2, rkP)

	e, err := proofChallenge(publicKey, ct, a1, a2)
	if err != nil {
		return nil, err
	}

	// zk = rk + e*k, zm = rm + e*m (mod order)
	zk := new(big.Int).Mul(e, k)
	zk.Add(zk, rk)
	zk.Mod(zk, order)
	zm := new(big.Int).Mul(e, new(big.Int).Mod(m, order))
	zm.Add(zm, rm)
	zm.Mod(zm, order)

	return &TransferProof{A1: a1, A2: a2, Zk: zk, Zm: zm}, nil
}

// Verify checks the proof against the ciphertext and public key.
func (p *TransferProof) Verify(publicKey ecc.Point, ct *Ciphertext) error {
	if p == nil || p.A1 == nil || p.A2 == nil || p.Zk == nil || p.Zm == nil {
		return fmt.Errorf("incomplete proof")
	}
	e, err := proofChallenge(publicKey, ct, p.A1, p.A2)
	if err != nil {
		return err
	}

	// zk*G == A1 + e*C1
	left := publicKey.New()
	left.ScalarBaseMult(p.Zk)
	right := publicKey.New()
	right.ScalarMult(ct.C1, e)
	right.Add(right, p.A1)
	if !left.Equal(right) {
		return fmt.Errorf("randomness response does not verify")
	}

	// zm*G + zk*P == A2 + e*C2
	left = publicKey.New()
	left.ScalarBaseMult(p.Zm)
	zkP := publicKey.New()
	zkP.ScalarMult(publicKey, p.Zk)
	left.Add(left, zkP)
	right = publicKey.New()
	right.ScalarMult(ct.C2, e)
	right.Add(right, p.A2)
	if !left.Equal(right) {
		return fmt.Errorf("message response does not verify")
	}
	return nil
}

// proofChallenge derives the Fiat-Shamir challenge from the public inputs.
func proofChallenge(publicKey ecc.Point, ct *Ciphertext, a1, a2 ecc.Point) (*big.Int, error) {
	inputs := make([]*big.Int, 0, 10)
	for _, pt := range []ecc.Point{publicKey, ct.C1, ct.C2, a1, a2} {
		x, y := pt.Point()
		inputs = append(inputs, x, y)
	}
	e, err := poseidon.Hash(inputs)
	if err != nil {
		return nil, fmt.Errorf("failed to compute proof challenge: %w", err)
	}
	return e.Mod(e, publicKey.Order()), nil
}

type transferProofJSON struct {
	A1 json.RawMessage `json:"a1"`
	A2 json.RawMessage `json:"a2"`
	Zk string          `json:"zk"`
	Zm string          `json:"zm"`
}

// MarshalJSON serializes the proof.
func (p *TransferProof) MarshalJSON() ([]byte, error) {
	a1, err := json.Marshal(p.A1)
	if err != nil {
		return nil, err
	}
	a2, err := json.Marshal(p.A2)
	if err != nil {
		return nil, err
	}
	return json.Marshal(transferProofJSON{A1: a1, A2: a2, Zk: p.Zk.String(), Zm: p.Zm.String()})
}

// UnmarshalProofJSON deserializes a proof whose points live on the given
// curve.
func UnmarshalProofJSON(curve ecc.Point, data []byte) (*TransferProof, error) {
	tmp := transferProofJSON{}
	if err := json.Unmarshal(data, &tmp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal proof container: %w", err)
	}
	a1, a2 := curve.New(), curve.New()
	if err := json.Unmarshal(tmp.A1, a1); err != nil {
		return nil, fmt.Errorf("failed to unmarshal a1: %w", err)
	}
	if err := json.Unmarshal(tmp.A2, a2); err != nil {
		return nil, fmt.Errorf("failed to unmarshal a2: %w", err)
	}
	zk, ok := new(big.Int).SetString(tmp.Zk, 10)
	if !ok {
		return nil, fmt.Errorf("invalid zk scalar: %q", tmp.Zk)
	}
	zm, ok := new(big.Int).SetString(tmp.Zm, 10)
	if !ok {
		return nil, fmt.Errorf("invalid zm scalar: %q", tmp.Zm)
	}
	return &TransferProof{A1: a1, A2: a2, Zk: zk, Zm: zm}, nil
}
