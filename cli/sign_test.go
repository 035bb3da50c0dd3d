package cli

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"image"
	"image/color"
	"image/png"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/acrosign/pdfsigner/internal/acroform"
	"github.com/acrosign/pdfsigner/internal/testpdf"
	"github.com/acrosign/pdfsigner/internal/testpki"
)

func writeTempCertAndKey(t *testing.T, dir string) (certPath, keyPath string) {
	t.Helper()
	priv := testpki.GenerateKey(t, testpki.RSA_2048)
	template := x509.Certificate{
		SerialNumber: big.NewInt(1),
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
	}
	certBytes, err := x509.CreateCertificate(rand.Reader, &template, &template, priv.Public(), priv)
	if err != nil {
		t.Fatalf("create certificate: %v", err)
	}

	certPath = filepath.Join(dir, "cert.pem")
	keyPath = filepath.Join(dir, "key.pem")

	certFile, err := os.Create(certPath)
	if err != nil {
		t.Fatal(err)
	}
	if err := pem.Encode(certFile, &pem.Block{Type: "CERTIFICATE", Bytes: certBytes}); err != nil {
		t.Fatal(err)
	}
	certFile.Close()

	keyFile, err := os.Create(keyPath)
	if err != nil {
		t.Fatal(err)
	}
	privBytes := x509.MarshalPKCS1PrivateKey(priv.(*rsa.PrivateKey))
	if err := pem.Encode(keyFile, &pem.Block{Type: "RSA PRIVATE KEY", Bytes: privBytes}); err != nil {
		t.Fatal(err)
	}
	keyFile.Close()

	return certPath, keyPath
}

func writeTempPNG(t *testing.T, dir string) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 4, 2))
	for y := 0; y < 2; y++ {
		for x := 0; x < 4; x++ {
			img.Set(x, y, color.NRGBA{R: 20, G: 20, B: 200, A: 255})
		}
	}
	path := filepath.Join(dir, "sig.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadCertificatesAndKey(t *testing.T) {
	dir := t.TempDir()
	certPath, keyPath := writeTempCertAndKey(t, dir)

	cert, key, chain, err := LoadCertificatesAndKey(certPath, keyPath, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cert == nil || key == nil {
		t.Fatal("expected a non-nil certificate and key")
	}
	if len(chain) != 0 {
		t.Fatalf("expected no chain without a chain path, got %d certs", len(chain))
	}

	if _, _, _, err := LoadCertificatesAndKey(filepath.Join(dir, "missing.pem"), keyPath, ""); err == nil {
		t.Fatal("expected an error for a nonexistent certificate path")
	}

	badCertPath := filepath.Join(dir, "badcert.pem")
	if err := os.WriteFile(badCertPath, []byte("garbage"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, _, _, err := LoadCertificatesAndKey(badCertPath, keyPath, ""); err == nil {
		t.Fatal("expected an error for invalid certificate content")
	}
}

func TestLoadUsersResolvesManifest(t *testing.T) {
	dir := t.TempDir()
	certPath, keyPath := writeTempCertAndKey(t, dir)
	imgPath := writeTempPNG(t, dir)

	manifest := []userManifestEntry{
		{UserID: "alice", UserName: "Alice", ImagePath: imgPath, CertPath: certPath, KeyPath: keyPath},
	}
	data, err := json.Marshal(manifest)
	if err != nil {
		t.Fatal(err)
	}
	manifestPath := filepath.Join(dir, "users.json")
	if err := os.WriteFile(manifestPath, data, 0o600); err != nil {
		t.Fatal(err)
	}

	users, err := LoadUsers(manifestPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(users) != 1 || users[0].UserID != "alice" {
		t.Fatalf("unexpected users: %+v", users)
	}
	if users[0].Signer.Certificate == nil || users[0].Signer.Signer == nil {
		t.Fatal("expected resolved signer material")
	}
}

func TestSignPDFImplWritesSignedOutput(t *testing.T) {
	dir := t.TempDir()
	certPath, keyPath := writeTempCertAndKey(t, dir)
	imgPath := writeTempPNG(t, dir)

	meta := acroform.EncodeFieldMeta("alice")
	raw, _ := testpdf.SignatureDocument([]testpdf.FieldSpec{
		{PartialName: meta, Rect: [4]float64{10, 10, 110, 60}},
	})
	inputPath := filepath.Join(dir, "input.pdf")
	if err := os.WriteFile(inputPath, raw, 0o600); err != nil {
		t.Fatal(err)
	}
	outputPath := filepath.Join(dir, "output.pdf")

	manifest := []userManifestEntry{
		{UserID: "alice", UserName: "Alice", ImagePath: imgPath, CertPath: certPath, KeyPath: keyPath},
	}
	data, _ := json.Marshal(manifest)
	manifestPath := filepath.Join(dir, "users.json")
	if err := os.WriteFile(manifestPath, data, 0o600); err != nil {
		t.Fatal(err)
	}

	signPDFImpl(inputPath, outputPath, manifestPath)

	out, err := os.ReadFile(outputPath)
	if err != nil {
		t.Fatalf("expected output file to be written: %v", err)
	}
	if len(out) <= len(raw) {
		t.Fatal("expected signed output to be larger than the input")
	}
}
