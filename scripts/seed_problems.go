// seed_problems.go loads YAML problem files, validates them locally and
// stores them through the Decision API.
//
// Usage:
//
//	go run scripts/seed_problems.go -dir scripts/problems -api http://localhost:8700 -method topsis
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"sort"

	"github.com/MikeSquared-Agency/Decision/internal/scoring"
)

type createProblemRequest struct {
	Description string           `json:"description,omitempty"`
	Problem     *scoring.Problem `json:"problem"`
}

type createdProblem struct {
	ID string `json:"problem_id"`
}

func main() {
	dir := flag.String("dir", "scripts/problems", "directory of *.yaml problem files")
	apiURL := flag.String("api", "http://localhost:8700", "Decision API base URL")
	clientID := flag.String("client", "seed", "X-Client-ID header value")
	method := flag.String("method", "", "also queue a run with this method for every stored problem")
	dryRun := flag.Bool("dry-run", false, "validate and rank locally without posting")
	flag.Parse()

	files, err := filepath.Glob(filepath.Join(*dir, "*.yaml"))
	if err != nil {
		log.Fatalf("list problems: %v", err)
	}
	sort.Strings(files)

	var problems []*scoring.Problem
	for _, path := range files {
		p, err := loadProblem(path)
		if err != nil {
			log.Printf("skip %s: %v", path, err)
			continue
		}
		problems = append(problems, p)
	}
	log.Printf("loaded %d problems from %s", len(problems), *dir)

	if *dryRun {
		m := scoring.WSM
		if *method != "" {
			if m, err = scoring.ParseMethod(*method); err != nil {
				log.Fatalf("%v", err)
			}
		}
		for _, p := range problems {
			res, err := scoring.Analyze(p, m, scoring.DefaultOptions())
			if err != nil {
				log.Printf("%s: %v", p.Name, err)
				continue
			}
			fmt.Printf("%s (%s): best=%s %.4f\n", p.Name, m, res.Best.Alt, res.Best.Score)
		}
		return
	}

	client := &http.Client{}
	created, skipped := 0, 0
	for _, p := range problems {
		var out createdProblem
		status, err := post(client, *apiURL+"/api/v1/problems", *clientID, createProblemRequest{Description: p.Description, Problem: p}, &out)
		if err != nil || status != http.StatusCreated {
			log.Printf("skip %q: status %d: %v", p.Name, status, err)
			skipped++
			continue
		}
		created++

		if *method == "" {
			continue
		}
		runURL := fmt.Sprintf("%s/api/v1/problems/%s/runs", *apiURL, out.ID)
		if status, err := post(client, runURL, *clientID, map[string]string{"method": *method, "source": "seed"}, nil); err != nil || status != http.StatusAccepted {
			log.Printf("queue run for %q: status %d: %v", p.Name, status, err)
		}
	}

	log.Printf("done: %d created, %d skipped", created, skipped)
}

func loadProblem(path string) (*scoring.Problem, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	p, err := scoring.DecodeProblemYAML(f)
	if err != nil {
		return nil, err
	}
	if err := scoring.Validate(p); err != nil {
		return nil, err
	}
	return p, nil
}

func post(client *http.Client, url, clientID string, body, out any) (int, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return 0, err
	}
	req, err := http.NewRequest("POST", url, bytes.NewReader(data))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Client-ID", clientID)

	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, err
		}
	}
	return resp.StatusCode, nil
}
