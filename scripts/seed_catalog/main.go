package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type seedSchedule struct {
	Days []string `json:"days"`
	Time string   `json:"time"`
	Room string   `json:"room"`
}

type seedCourse struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	Description   string        `json:"description"`
	Credits       int           `json:"credits"`
	Instructor    string        `json:"instructor"`
	Capacity      int           `json:"capacity"`
	Prerequisites []string      `json:"prerequisites"`
	Schedule      *seedSchedule `json:"schedule"`
}

type fixture struct {
	Courses []seedCourse `json:"courses"`
}

type result struct {
	Course   seedCourse
	Status   int
	Error    error
	Duration time.Duration
}

func main() {
	var (
		base        string
		username    string
		password    string
		fixturePath string
		timeout     time.Duration
	)

	flag.StringVar(&base, "base", "http://localhost:8080", "API base URL")
	flag.StringVar(&username, "username", "registrar-admin", "Administrator username")
	flag.StringVar(&password, "password", "", "Administrator password")
	flag.StringVar(&fixturePath, "fixture", filepath.Join("scripts", "seed_catalog", "catalog.json"), "Path to the JSON catalog fixture")
	flag.DurationVar(&timeout, "timeout", 5*time.Second, "HTTP client timeout")
	flag.Parse()

	if password == "" {
		log.Fatal("a -password is required")
	}

	courses, err := loadFixture(fixturePath)
	if err != nil {
		log.Fatalf("failed to load fixture: %v", err)
	}

	client := &http.Client{Timeout: timeout}
	token, err := login(client, base, username, password)
	if err != nil {
		log.Fatalf("login failed: %v", err)
	}

	var (
		results []result
		failed  int
	)
	for _, course := range courses {
		res := createCourse(client, base, token, course)
		if res.Error != nil || res.Status >= http.StatusBadRequest {
			failed++
		}
		results = append(results, res)
	}

	printReport(results)

	fmt.Printf("Seeded: %d, Failed: %d\n", len(results)-failed, failed)
	if failed > 0 {
		os.Exit(1)
	}
}

func loadFixture(path string) ([]seedCourse, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	if len(f.Courses) == 0 {
		return nil, fmt.Errorf("no courses defined in %s", path)
	}
	return f.Courses, nil
}

func login(client *http.Client, base, username, password string) (string, error) {
	payload, err := json.Marshal(map[string]string{
		"username": username,
		"password": password,
	})
	if err != nil {
		return "", err
	}

	resp, err := client.Post(apiURL(base, "/auth/login"), "application/json", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var envelope struct {
		Data struct {
			AccessToken string `json:"access_token"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return "", err
	}
	if envelope.Data.AccessToken == "" {
		return "", fmt.Errorf("login response carried no access token")
	}
	return envelope.Data.AccessToken, nil
}

func createCourse(client *http.Client, base, token string, course seedCourse) result {
	res := result{Course: course}

	payload, err := json.Marshal(course)
	if err != nil {
		res.Error = err
		return res
	}

	req, err := http.NewRequest(http.MethodPost, apiURL(base, "/courses"), bytes.NewReader(payload))
	if err != nil {
		res.Error = err
		return res
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	start := time.Now()
	resp, err := client.Do(req)
	res.Duration = time.Since(start)
	if err != nil {
		res.Error = err
		return res
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	res.Status = resp.StatusCode
	return res
}

func apiURL(base, path string) string {
	return strings.TrimRight(base, "/") + "/api/v1" + path
}

func printReport(results []result) {
	fmt.Println("Catalog Seed Report")
	fmt.Println("===================")
	for _, res := range results {
		status := "OK"
		if res.Error != nil {
			status = "ERROR"
		} else if res.Status == http.StatusConflict {
			status = "EXISTS"
		} else if res.Status >= http.StatusBadRequest {
			status = "FAIL"
		}
		fmt.Printf("[%s] %s %s\n", status, res.Course.ID, res.Course.Name)
		if res.Error != nil {
			fmt.Printf("  Error: %v\n", res.Error)
		} else {
			fmt.Printf("  Status: %d (%s)\n", res.Status, res.Duration)
		}
	}
}
