package telephony

import (
	"encoding/json"
	"errors"
	"net/http"

	"voiceagent-platform/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// MediaStreamHandler accepts the media bridge's websocket connection and
// relays its transcript frames into the sink. The bridge performs speech
// recognition externally; this handler only translates frames.
//
// Frame protocol (JSON text messages):
//
//	{"event":"transcript","call_sid":"CA..","speaker":"caller","text":"...","sequence":3}
//	{"event":"stop","call_sid":"CA.."}
type MediaStreamHandler struct {
	Sink EventSink
}

// maxFrameBytes bounds a single bridge frame; transcript fragments are short.
const maxFrameBytes = 1 << 20

var mediaUpgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// The bridge is a trusted internal peer, not a browser.
	CheckOrigin: func(*http.Request) bool { return true },
}

type mediaFrame struct {
	Event    string `json:"event"`
	CallSid  string `json:"call_sid"`
	Speaker  string `json:"speaker"`
	Text     string `json:"text"`
	Sequence int64  `json:"sequence"`
}

func (h MediaStreamHandler) HandleStream(c *gin.Context) {
	log := logger.FromGin(c)

	conn, err := mediaUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn("media stream upgrade failed", "err", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxFrameBytes)

	ctx := c.Request.Context()
	for {
		var frame mediaFrame
		if err := conn.ReadJSON(&frame); err != nil {
			var closeErr *websocket.CloseError
			if !errors.As(err, &closeErr) && !errors.Is(err, websocket.ErrReadLimit) {
				// Skip malformed frames but give up on transport errors.
				var syntaxErr *json.SyntaxError
				var typeErr *json.UnmarshalTypeError
				if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
					log.Warn("media frame decode failed", "err", err)
					continue
				}
			}
			return
		}

		switch frame.Event {
		case "transcript":
			if h.Sink == nil {
				continue
			}
			err := h.Sink.OnTranscriptFragment(ctx, TranscriptFrame{
				CallID:   frame.CallSid,
				Speaker:  frame.Speaker,
				Text:     frame.Text,
				Sequence: frame.Sequence,
			})
			if err != nil {
				log.Warn("transcript fragment dropped", "call_id", frame.CallSid, "err", err)
			}
		case "stop":
			if h.Sink != nil && frame.CallSid != "" {
				h.Sink.OnStreamStop(ctx, frame.CallSid)
			}
		default:
			// Media payload frames and unknown events are ignored here;
			// raw audio never reaches this service.
		}
	}
}
