// ingest-probe 部署验收工具：向运行中的 shopguard-backend 发送一组
// 合成的检测事件、non_scan 报警和心跳，验证上报链路连通
//
// 用法：
//
//	go run ./cmd/ingest-probe -base http://localhost:8081 -key <CV_API_KEY>
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/go-resty/resty/v2"
)

func main() {
	baseURL := flag.String("base", "http://localhost:8081", "backend base URL")
	apiKey := flag.String("key", os.Getenv("CV_API_KEY"), "producer API key (X-API-Key)")
	cameraID := flag.String("camera", "probe-camera-01", "external camera id to report as")
	locationID := flag.String("location", "00000000-0000-0000-0000-000000000000", "location id hint")
	flag.Parse()

	client := resty.New().
		SetBaseURL(*baseURL).
		SetTimeout(10 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		SetHeader("Content-Type", "application/json")
	if *apiKey != "" {
		client.SetHeader("X-API-Key", *apiKey)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	failed := false

	detection := map[string]any{
		"camera_id":    *cameraID,
		"location_id":  *locationID,
		"timestamp":    now,
		"frame_number": 1,
		"detections": []map[string]any{
			{
				"class_id":   39,
				"class_name": "bottle",
				"confidence": 0.87,
				"bbox":       map[string]float64{"x1": 100, "y1": 120, "x2": 180, "y2": 260},
			},
		},
	}
	failed = !post(client, "/cv/api/v1/detections", detection) || failed

	alert := map[string]any{
		"camera_id":   *cameraID,
		"location_id": *locationID,
		"timestamp":   now,
		"alert_type":  "non_scan",
		"class_name":  "bottle",
		"confidence":  0.87,
		"bbox":        map[string]float64{"x1": 100, "y1": 120, "x2": 180, "y2": 260},
		"description": "probe: item moved past scan zone without scan",
	}
	failed = !post(client, "/cv/api/v1/alerts", alert) || failed

	heartbeat := map[string]any{
		"cameras": 1,
		"active":  1,
		"uptime":  1.0,
	}
	failed = !post(client, "/cv/api/v1/heartbeat", heartbeat) || failed

	if failed {
		os.Exit(1)
	}
	fmt.Println("ingest probe OK")
}

func post(client *resty.Client, path string, body any) bool {
	resp, err := client.R().SetBody(body).Post(path)
	if err != nil {
		fmt.Printf("POST %s failed: %v\n", path, err)
		return false
	}
	if resp.StatusCode() >= 300 {
		fmt.Printf("POST %s -> %d: %s\n", path, resp.StatusCode(), resp.String())
		return false
	}

	// 响应体统一是小 JSON 对象，原样打印便于排查
	var pretty map[string]any
	if err := json.Unmarshal(resp.Body(), &pretty); err == nil {
		fmt.Printf("POST %s -> %d %v\n", path, resp.StatusCode(), pretty)
	} else {
		fmt.Printf("POST %s -> %d\n", path, resp.StatusCode())
	}
	return true
}
