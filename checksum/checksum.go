// Package checksum computes and verifies content digests of archive
// payloads.
//
// Digests use the "algorithm:hex" form of github.com/opencontainers/go-digest,
// so a SHA-256 digest of an entry is directly comparable with an OCI blob
// digest. MD5 and SHA-1 are provided for legacy manifests only.
package checksum

import (
	"crypto/md5"  //nolint:gosec // legacy manifests only
	"crypto/sha1" //nolint:gosec // legacy manifests only
	"hash"
	"io"
	"strings"

	"github.com/opencontainers/go-digest"

	"github.com/jmgilman/go/archive/errors"
)

// Algorithm is a supported digest algorithm.
type Algorithm byte

const (
	// SHA256 is the default and the only algorithm go-digest validates.
	SHA256 Algorithm = iota + 1
	SHA1
	MD5
)

// Valid returns nil iff a is a known algorithm.
func (a Algorithm) Valid() error {
	switch a {
	case SHA256, SHA1, MD5:
		return nil
	}
	return errors.WithContext(
		errors.New(errors.CodeUnsupportedFormat, "unknown digest algorithm"),
		"algorithm", int(a))
}

// String returns the algorithm name used in digest strings.
func (a Algorithm) String() string {
	switch a {
	case SHA256:
		return string(digest.SHA256)
	case SHA1:
		return "sha1"
	case MD5:
		return "md5"
	}
	return "unknown"
}

// ParseAlgorithm maps a digest algorithm name to an Algorithm.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch strings.ToLower(s) {
	case "sha256", "":
		return SHA256, nil
	case "sha1":
		return SHA1, nil
	case "md5":
		return MD5, nil
	}
	return 0, errors.WithContext(
		errors.New(errors.CodeUnsupportedFormat, "unknown digest algorithm"),
		"algorithm", s)
}

// Hash returns a new hash.Hash for a. It panics on an invalid algorithm.
func (a Algorithm) Hash() hash.Hash {
	switch a {
	case SHA256:
		return digest.SHA256.Hash()
	case SHA1:
		return sha1.New() //nolint:gosec
	case MD5:
		return md5.New() //nolint:gosec
	}
	panic(a.Valid())
}

// Digester accumulates written bytes into a digest.
type Digester struct {
	alg Algorithm
	h   hash.Hash
	n   int64
}

// NewDigester returns an empty Digester for a.
func (a Algorithm) NewDigester() *Digester {
	return &Digester{alg: a, h: a.Hash()}
}

// Write adds p to the digest. It never fails.
func (d *Digester) Write(p []byte) (int, error) {
	n, _ := d.h.Write(p)
	d.n += int64(n)
	return n, nil
}

// Size returns the number of bytes digested.
func (d *Digester) Size() int64 {
	return d.n
}

// Digest returns the digest of everything written so far.
func (d *Digester) Digest() digest.Digest {
	return digest.NewDigest(digest.Algorithm(d.alg.String()), d.h)
}

// FromReader digests everything r yields.
func FromReader(a Algorithm, r io.Reader) (digest.Digest, error) {
	if err := a.Valid(); err != nil {
		return "", err
	}
	d := a.NewDigester()
	if _, err := io.Copy(d, r); err != nil {
		return "", errors.Wrap(err, errors.CodeIO, "failed to read content for digest")
	}
	return d.Digest(), nil
}

// FromBytes digests b.
func FromBytes(a Algorithm, b []byte) digest.Digest {
	d := a.NewDigester()
	_, _ = d.Write(b)
	return d.Digest()
}

// AlgorithmOf returns the Algorithm of an existing digest.
func AlgorithmOf(d digest.Digest) (Algorithm, error) {
	i := strings.IndexByte(string(d), ':')
	if i <= 0 || i == len(d)-1 {
		return 0, errors.WithContext(
			errors.New(errors.CodeInvalidInput, "malformed digest"),
			"digest", string(d))
	}
	return ParseAlgorithm(string(d)[:i])
}

// Verify reads r to the end and reports DIGEST_MISMATCH unless its digest
// equals expected.
func Verify(r io.Reader, expected digest.Digest) error {
	a, err := AlgorithmOf(expected)
	if err != nil {
		return err
	}
	if a == SHA256 {
		if err := expected.Validate(); err != nil {
			return errors.Wrap(err, errors.CodeInvalidInput, "malformed digest")
		}
	}

	actual, err := FromReader(a, r)
	if err != nil {
		return err
	}
	if actual != expected {
		return errors.WithContextMap(
			errors.New(errors.CodeDigestMismatch, "content does not match digest"),
			map[string]interface{}{"expected": expected.String(), "actual": actual.String()})
	}
	return nil
}

// verifyingReader digests what it reads and checks the digest at io.EOF.
type verifyingReader struct {
	r        io.Reader
	d        *Digester
	expected digest.Digest
}

// NewVerifyingReader returns a reader over r that fails with
// DIGEST_MISMATCH in place of io.EOF when the content does not match
// expected.
func NewVerifyingReader(r io.Reader, expected digest.Digest) (io.Reader, error) {
	a, err := AlgorithmOf(expected)
	if err != nil {
		return nil, err
	}
	return &verifyingReader{r: r, d: a.NewDigester(), expected: expected}, nil
}

func (v *verifyingReader) Read(p []byte) (int, error) {
	n, err := v.r.Read(p)
	_, _ = v.d.Write(p[:n])
	if err == io.EOF {
		if actual := v.d.Digest(); actual != v.expected {
			return n, errors.WithContextMap(
				errors.New(errors.CodeDigestMismatch, "content does not match digest"),
				map[string]interface{}{"expected": v.expected.String(), "actual": actual.String()})
		}
	}
	return n, err
}
