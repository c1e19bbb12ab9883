package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTPAddr string

	// DB
	Env    string // "dev" | "prod"
	DBPath string // e.g. "./data/gatekeeper.db"

	// Plate recognition service
	PlateAPIURL  string
	PlateToken   string
	PlateRegions []string

	// Face recognition service (AWS Rekognition)
	FaceCollectionID string
	FaceServiceFloor float64 // Rekognition-side match floor, percent

	// Decision policy
	FaceAllowThreshold float64 // 0-1 scale; >= passes

	// External call budget
	RecognitionTimeout time.Duration

	// Per-camera metadata file (YAML); optional
	CameraConfigPath string

	// Operator auth: token -> operator name
	OperatorTokens map[string]string
}

func FromEnv() Config {
	addr := getenvDefault("GATEKEEPER_HTTP_ADDR", ":8080")

	env := strings.ToLower(getenvDefault("GATEKEEPER_ENV", "dev"))
	if env != "dev" && env != "prod" {
		// fail-soft: treat unknown as dev
		env = "dev"
	}

	dbPath := getenvDefault("GATEKEEPER_DB_PATH", "./data/gatekeeper.db")

	threshold := getenvFloat("GATEKEEPER_FACE_ALLOW_THRESHOLD", 0.85)
	if threshold <= 0 || threshold > 1 {
		threshold = 0.85
	}

	timeoutSec := getenvInt("GATEKEEPER_RECOGNITION_TIMEOUT_S", 12)
	if timeoutSec <= 0 {
		timeoutSec = 12
	}

	return Config{
		HTTPAddr: addr,
		Env:      env,
		DBPath:   dbPath,

		PlateAPIURL:  os.Getenv("GATEKEEPER_PLATE_API_URL"),
		PlateToken:   os.Getenv("GATEKEEPER_PLATE_TOKEN"),
		PlateRegions: splitCSV(getenvDefault("GATEKEEPER_PLATE_REGIONS", "bo")),

		FaceCollectionID: os.Getenv("GATEKEEPER_FACE_COLLECTION_ID"),
		FaceServiceFloor: getenvFloat("GATEKEEPER_FACE_SERVICE_FLOOR", 80),

		FaceAllowThreshold: threshold,
		RecognitionTimeout: time.Duration(timeoutSec) * time.Second,

		CameraConfigPath: os.Getenv("GATEKEEPER_CAMERA_CONFIG"),

		OperatorTokens: parseTokenMap(os.Getenv("GATEKEEPER_OPERATOR_TOKENS")),
	}
}

// parseTokenMap parses "token:name,token2:name2". Entries without a name
// keep the token as the operator label.
func parseTokenMap(v string) map[string]string {
	out := make(map[string]string)
	for _, part := range splitCSV(v) {
		token, name, found := strings.Cut(part, ":")
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		if !found || strings.TrimSpace(name) == "" {
			out[token] = token
			continue
		}
		out[token] = strings.TrimSpace(name)
	}
	return out
}

func getenvDefault(key, def string) string {
	v := os.Getenv(key)
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func getenvInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}

func getenvFloat(key string, def float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func splitCSV(v string) []string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Camera is the per-camera metadata block of the camera config file.
type Camera struct {
	Direction string `yaml:"direction"` // ENTRY | EXIT
	Region    string `yaml:"region"`    // optional plate region hint
}

// CameraMap maps camera ids to their metadata. Used only for audit
// tagging and OCR hints, never for the access decision.
type CameraMap map[string]Camera

type cameraFile struct {
	Cameras CameraMap `yaml:"cameras"`
}

// LoadCameraMap reads the YAML camera config. A missing path yields an
// empty map: cameras then simply report unspecified direction.
func LoadCameraMap(path string) (CameraMap, error) {
	if strings.TrimSpace(path) == "" {
		return CameraMap{}, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read camera config: %w", err)
	}

	var f cameraFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse camera config: %w", err)
	}
	if f.Cameras == nil {
		f.Cameras = CameraMap{}
	}
	return f.Cameras, nil
}
