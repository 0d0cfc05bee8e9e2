package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	flag "github.com/spf13/pflag"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func main() {
	var (
		baseURL  = flag.String("base-url", "http://localhost:8080", "API base URL")
		grpcAddr = flag.String("grpc-addr", "", "gRPC health address (skipped when empty)")
		token    = flag.String("token", os.Getenv("LANGHUB_SMOKE_TOKEN"), "bearer token")
		apiKey   = flag.String("api-key", os.Getenv("LANGHUB_SMOKE_API_KEY"), "service API key")
	)
	flag.Parse()
	if *token == "" && *apiKey == "" {
		log.Fatal("provide --token or --api-key")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if *grpcAddr != "" {
		if err := checkGRPC(ctx, *grpcAddr); err != nil {
			log.Fatalf("grpc health at %s: %v", *grpcAddr, err)
		}
	}

	headers := map[string]string{}
	if *apiKey != "" {
		headers["X-API-Key"] = *apiKey
	} else {
		headers["Authorization"] = "Bearer " + *token
	}

	var me struct {
		Kind               string `json:"kind"`
		DefaultWorkspaceID string `json:"default_workspace_id"`
	}
	if err := getJSON(ctx, *baseURL+"/v1/me", headers, http.StatusOK, &me); err != nil {
		log.Fatalf("me: %v", err)
	}
	if me.DefaultWorkspaceID == "" {
		log.Fatalf("%s requester has no workspace", me.Kind)
	}

	var access struct {
		Role      string   `json:"role"`
		Abilities []string `json:"abilities"`
	}
	if err := getJSON(ctx, *baseURL+"/v1/workspaces/"+me.DefaultWorkspaceID+"/access", headers, http.StatusOK, &access); err != nil {
		log.Fatalf("access: %v", err)
	}
	if len(access.Abilities) == 0 {
		log.Fatalf("workspace %s resolved no abilities", me.DefaultWorkspaceID)
	}

	// Every member can read; the check endpoint must agree with /access.
	if err := getJSON(ctx, *baseURL+"/v1/workspaces/"+me.DefaultWorkspaceID+"/abilities/workspace:read", headers, http.StatusNoContent, nil); err != nil {
		log.Fatalf("ability check: %v", err)
	}
	if err := getJSON(ctx, *baseURL+"/v1/workspaces/"+uuid.NewString()+"/access", headers, http.StatusForbidden, nil); err != nil {
		log.Fatalf("foreign workspace: %v", err)
	}

	fmt.Printf("✅ access smoke test passed: kind=%s workspace=%s role=%s abilities=%d\n",
		me.Kind, me.DefaultWorkspaceID, access.Role, len(access.Abilities))
}

func checkGRPC(ctx context.Context, addr string) error {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return err
	}
	defer conn.Close()
	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{})
	if err != nil {
		return err
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return fmt.Errorf("status %s", resp.GetStatus())
	}
	return nil
}

func getJSON(ctx context.Context, url string, headers map[string]string, want int, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("X-Request-ID", "smoke-"+uuid.NewString())
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != want {
		return fmt.Errorf("unexpected status %d (want %d)", resp.StatusCode, want)
	}
	if dst == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(dst)
}
