package cli

import (
	"bytes"
	"crypto"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/acrosign/pdfsigner/config"
	"github.com/acrosign/pdfsigner/sign"

	pdfsign "github.com/acrosign/pdfsigner"
)

// userManifestEntry is one line of the JSON array passed via -users: the
// on-disk description of a UserSignatureInfo, since certificates, keys and
// appearance images can't travel as flag.Value strings.
type userManifestEntry struct {
	UserID    string `json:"user_id"`
	UserName  string `json:"user_name"`
	UserEmail string `json:"user_email"`
	ImagePath string `json:"image"`
	CertPath  string `json:"cert"`
	KeyPath   string `json:"key"`
	ChainPath string `json:"chain"`
	TSAURL    string `json:"tsa,omitempty"`
}

func SignCommand() {
	signFlags := flag.NewFlagSet("sign", flag.ExitOnError)

	usersPath := signFlags.String("users", "", "Path to a JSON manifest of users to sign as (required)")
	configPath := signFlags.String("config", "", "Path to an optional pdfsign.conf TOML file")

	signFlags.Usage = func() {
		fmt.Printf("Usage: %s sign -users <users.json> <input.pdf> <output.pdf>\n\n", os.Args[0])
		fmt.Println("Sign every unsigned signature field in input.pdf whose user_id")
		fmt.Println("appears in the users manifest, writing the result to output.pdf.")
		fmt.Println("\nOptions:")
		signFlags.PrintDefaults()
	}

	if err := signFlags.Parse(os.Args[2:]); err != nil {
		log.Fatalf("failed to parse sign flags: %v", err)
	}

	if *configPath != "" {
		config.Read(*configPath)
	}

	if *usersPath == "" || signFlags.NArg() < 2 {
		signFlags.Usage()
		osExit(1)
		return
	}

	input := signFlags.Arg(0)
	output := signFlags.Arg(1)

	SignPDF(input, output, *usersPath)
}

// SignPDF is indirected through a var so tests can stub it out.
var SignPDF = signPDFImpl

func signPDFImpl(input, output, usersPath string) {
	users, err := LoadUsers(usersPath)
	if err != nil {
		log.Fatal(err)
	}

	raw, err := os.ReadFile(input)
	if err != nil {
		log.Fatal(err)
	}

	doc, err := pdfsign.Read(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		log.Fatal(err)
	}

	signed, err := doc.Sign(users)
	if err != nil {
		log.Println(err)
		osExit(1)
		return
	}

	out, err := os.Create(output)
	if err != nil {
		log.Fatal(err)
	}
	defer out.Close()

	if err := pdfsign.Write(signed, out); err != nil {
		log.Fatal(err)
	}
	log.Println("Signed PDF written to " + output)
}

// LoadUsers reads the JSON manifest at path and resolves each entry's
// certificate, key, chain and appearance image from disk into a
// pdfsign.UserSignatureInfo.
func LoadUsers(path string) ([]pdfsign.UserSignatureInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading users manifest: %w", err)
	}

	var entries []userManifestEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parsing users manifest: %w", err)
	}

	users := make([]pdfsign.UserSignatureInfo, 0, len(entries))
	for _, e := range entries {
		cert, key, chain, err := LoadCertificatesAndKey(e.CertPath, e.KeyPath, e.ChainPath)
		if err != nil {
			return nil, fmt.Errorf("user %q: %w", e.UserID, err)
		}

		image, err := os.ReadFile(e.ImagePath)
		if err != nil {
			return nil, fmt.Errorf("user %q: reading appearance image: %w", e.UserID, err)
		}

		tsaURL := e.TSAURL
		if tsaURL == "" {
			tsaURL = config.Settings.TimestampURL
		}

		users = append(users, pdfsign.UserSignatureInfo{
			UserID:            e.UserID,
			UserName:          e.UserName,
			UserEmail:         e.UserEmail,
			SignatureImagePNG: image,
			Signer: sign.Signer{
				Signer:           key,
				Certificate:      cert,
				CertificateChain: chain,
				DigestAlgorithm:  crypto.SHA256,
				TSA:              sign.TSA{URL: tsaURL},
			},
		})
	}
	return users, nil
}

// LoadCertificatesAndKey parses a PEM or DER certificate, a PEM private
// key (PKCS#1 or PKCS#8), and an optional PEM certificate chain.
func LoadCertificatesAndKey(certPath, keyPath, chainPath string) (*x509.Certificate, crypto.Signer, []*x509.Certificate, error) {
	certData, err := os.ReadFile(certPath)
	if err != nil {
		return nil, nil, nil, err
	}

	var cert *x509.Certificate
	if block, _ := pem.Decode(certData); block != nil {
		cert, err = x509.ParseCertificate(block.Bytes)
	} else if len(certData) > 0 {
		cert, err = x509.ParseCertificate(certData)
	} else {
		err = errors.New("certificate data is empty")
	}
	if err != nil {
		return nil, nil, nil, fmt.Errorf("parsing certificate: %w", err)
	}

	keyData, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, nil, nil, err
	}
	keyBlock, _ := pem.Decode(keyData)
	if keyBlock == nil {
		return nil, nil, nil, errors.New("failed to parse PEM block containing the private key")
	}

	signer, err := parsePrivateKey(keyBlock.Bytes)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("parsing private key: %w", err)
	}

	var chain []*x509.Certificate
	if chainPath != "" {
		chainData, err := os.ReadFile(chainPath)
		if err != nil {
			return nil, nil, nil, err
		}
		chain, err = parseCertChain(chainData)
		if err != nil {
			return nil, nil, nil, err
		}
	}

	return cert, signer, chain, nil
}

func parsePrivateKey(der []byte) (crypto.Signer, error) {
	if key, err := x509.ParsePKCS1PrivateKey(der); err == nil {
		return key, nil
	}
	if key, err := x509.ParsePKCS8PrivateKey(der); err == nil {
		if signer, ok := key.(crypto.Signer); ok {
			return signer, nil
		}
		return nil, errors.New("PKCS#8 key does not implement crypto.Signer")
	}
	if key, err := x509.ParseECPrivateKey(der); err == nil {
		return key, nil
	}
	return nil, errors.New("unrecognized private key format")
}

func parseCertChain(pemData []byte) ([]*x509.Certificate, error) {
	var chain []*x509.Certificate
	rest := pemData
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("parsing chain certificate: %w", err)
		}
		chain = append(chain, cert)
	}
	return chain, nil
}
