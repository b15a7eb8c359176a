// Package confidential implements the confidential value layer of the engine:
// additively homomorphic ElGamal encryption over an elliptic curve, opaque
// handles with capability-based access control, and sigma proofs of plaintext
// knowledge for transferred values.
package confidential

import (
	"crypto/rand"
	"fmt"
	"math"
	"math/big"

	"github.com/vocdoni/arbo"

	"github.com/darkswap-labs/batchswap/crypto/ecc"
)

// RandK generates a random scalar for encryption.
func RandK() (*big.Int, error) {
	kBytes := make([]byte, 20)
	if _, err := rand.Read(kBytes); err != nil {
		return nil, fmt.Errorf("failed to generate random k: %v", err)
	}
	k := new(big.Int).SetBytes(kBytes)
	return arbo.BigToFF(arbo.BN254BaseField, k), nil
}

// GenerateKey generates a new public/private ElGamal encryption key pair on
// the curve of the given point.
func GenerateKey(curve ecc.Point) (publicKey ecc.Point, privateKey *big.Int, err error) {
	order := curve.Order()
	d, err := rand.Int(rand.Reader, order)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate private key scalar: %v", err)
	}
	if d.Sign() == 0 {
		d = big.NewInt(1) // avoid zero private keys
	}
	publicKey = curve.New()
	publicKey.SetGenerator()
	publicKey.ScalarMult(publicKey, d)
	return publicKey, d, nil
}

// EncryptWithK encrypts a message with the public key and the provided
// randomness k. It returns the two points of the ciphertext.
func EncryptWithK(pubKey ecc.Point, msg, k *big.Int) (ecc.Point, ecc.Point, error) {
	order := pubKey.Order()
	msg = new(big.Int).Mod(msg, order)
	// C1 = k * G
	c1 := pubKey.New()
	c1.ScalarBaseMult(k)
	// s = k * pubKey
	s := pubKey.New()
	s.ScalarMult(pubKey, k)
	// M = msg * G
	m := pubKey.New()
	m.ScalarBaseMult(msg)
	// C2 = M + s
	c2 := pubKey.New()
	c2.Add(m, s)
	return c1, c2, nil
}

// Decrypt recovers the plaintext scalar of the ciphertext (c1, c2) with the
// private key. It computes M = c2 - d*c1 and solves the discrete log of M up
// to maxMessage with baby-step giant-step. Returns an error if no solution
// exists within the bound.
func Decrypt(publicKey ecc.Point, privateKey *big.Int, c1, c2 ecc.Point, maxMessage uint64) (*big.Int, error) {
	dC1 := c2.New()
	dC1.ScalarMult(c1, privateKey)
	dC1.Neg(dC1)

	M := c2.New()
	M.Set(c2)
	M.Add(M, dC1) // M = c2 - d*c1

	G := publicKey.New()
	G.SetGenerator()

	message, err := babyStepGiantStep(M, G, maxMessage)
	if err != nil {
		return nil, fmt.Errorf("failed to find discrete log: %v", err)
	}
	return message, nil
}

// babyStepGiantStep solves M = x*G for x in [0, maxMessage].
func babyStepGiantStep(M, G ecc.Point, maxMessage uint64) (*big.Int, error) {
	mSqrt := uint64(math.Sqrt(float64(maxMessage))) + 1

	babySteps := make(map[string]uint64, mSqrt)
	babyStep := M.New()
	babyStep.SetZero()
	for j := uint64(0); j < mSqrt; j++ {
		babySteps[babyStep.String()] = j
		babyStep.Add(babyStep, G)
	}

	// giant step: -mSqrt * G
	giantStride := G.New()
	giantStride.ScalarMult(G, new(big.Int).SetUint64(mSqrt))
	giantStride.Neg(giantStride)

	current := M.New()
	current.Set(M)
	for i := uint64(0); i <= mSqrt; i++ {
		if j, ok := babySteps[current.String()]; ok {
			x := i*mSqrt + j
			if x > maxMessage {
				break
			}
			return new(big.Int).SetUint64(x), nil
		}
		current.Add(current, giantStride)
	}
	return nil, fmt.Errorf("no discrete log found up to %d", maxMessage)
}
