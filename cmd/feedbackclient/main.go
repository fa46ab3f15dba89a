package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/satriahrh/pronounce/domain"
)

func main() {
	server := flag.String("server", "http://localhost:8080", "server base URL")
	user := flag.Int64("user", 1, "user id")
	sentence := flag.Int64("sentence", 1, "sentence id")
	audioPath := flag.String("audio", "", "path to the recording to upload")
	sampleRate := flag.Int("sample-rate", 0, "sample rate of the recording, server default when 0")
	useWS := flag.Bool("ws", false, "use the WebSocket endpoint instead of Server-Sent Events")
	flag.Parse()

	if *audioPath == "" {
		log.Fatal("-audio is required")
	}
	audio, err := os.ReadFile(*audioPath)
	if err != nil {
		log.Fatal("read audio:", err)
	}

	var done bool
	if *useWS {
		done, err = streamWebSocket(*server, *user, *sentence, audio, *sampleRate, os.Stdout)
	} else {
		done, err = streamSSE(*server, *user, *sentence, *audioPath, audio, *sampleRate, os.Stdout)
	}
	fmt.Println()
	if err != nil {
		log.Fatal(err)
	}
	if !done {
		log.Fatal("stream ended without the terminal event, feedback was not saved")
	}
}

func streamSSE(server string, user, sentence int64, name string, audio []byte, sampleRate int, out io.Writer) (bool, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if sampleRate > 0 {
		if err := w.WriteField("sample_rate", fmt.Sprint(sampleRate)); err != nil {
			return false, err
		}
	}
	part, err := w.CreateFormFile("audio_file", filepath.Base(name))
	if err != nil {
		return false, err
	}
	if _, err := part.Write(audio); err != nil {
		return false, err
	}
	if err := w.Close(); err != nil {
		return false, err
	}

	endpoint := fmt.Sprintf("%s/feedback/%d/%d", strings.TrimSuffix(server, "/"), user, sentence)
	resp, err := http.Post(endpoint, w.FormDataContentType(), &body)
	if err != nil {
		return false, fmt.Errorf("post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return false, fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	return readSSE(resp.Body, func(text string) {
		fmt.Fprint(out, text)
	})
}

// readSSE consumes an event stream, handing every fragment to onFragment.
// It reports whether the terminal done event arrived.
func readSSE(r io.Reader, onFragment func(string)) (bool, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	var event string
	var data []string
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if event == domain.EventDone {
				return true, nil
			}
			if len(data) > 0 {
				onFragment(strings.Join(data, "\n"))
			}
			event, data = "", nil
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			value := strings.TrimPrefix(line, "data:")
			data = append(data, strings.TrimPrefix(value, " "))
		}
	}
	return false, scanner.Err()
}

func streamWebSocket(server string, user, sentence int64, audio []byte, sampleRate int, out io.Writer) (bool, error) {
	u, err := url.Parse(server)
	if err != nil {
		return false, err
	}
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}
	u.Path = fmt.Sprintf("/ws/feedback/%d/%d", user, sentence)

	log.Printf("connecting to %s", u.String())
	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return false, fmt.Errorf("dial: %w", err)
	}
	defer c.Close()

	if sampleRate > 0 {
		start, _ := json.Marshal(map[string]any{"type": "start", "sample_rate": sampleRate})
		if err := c.WriteMessage(websocket.TextMessage, start); err != nil {
			return false, fmt.Errorf("write start: %w", err)
		}
	}
	if err := c.WriteMessage(websocket.BinaryMessage, audio); err != nil {
		return false, fmt.Errorf("write audio: %w", err)
	}

	for {
		var event domain.StreamEvent
		if err := c.ReadJSON(&event); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return false, nil
			}
			return false, fmt.Errorf("read: %w", err)
		}

		switch event.Type {
		case domain.EventFragment:
			fmt.Fprint(out, event.Text)
		case domain.EventDone:
			_ = c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return true, nil
		case domain.EventError:
			return false, fmt.Errorf("server error %s: %s", event.Code, event.Message)
		}
	}
}
