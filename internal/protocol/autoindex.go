package protocol

import (
	"fmt"
	"html"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
)

// Autoindex handles GET /api/v1/autoindex/{channel}/{index}/ — an
// nginx-style HTML directory listing of every relic under (channel,
// index), per spec.md §4.9. 404s if the index has no relics.
func (s *Service) Autoindex(w http.ResponseWriter, r *http.Request) {
	channel := chi.URLParam(r, "channel")
	index := chi.URLParam(r, "index")

	idxID, err := s.resolveIndex(channel, index)
	if err != nil {
		JSONError(w, http.StatusNotFound, "no such channel/index")
		return
	}

	relics, err := s.DB.ListRelics(idxID)
	if err != nil {
		JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if len(relics) == 0 {
		JSONError(w, http.StatusNotFound, "no relics")
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "<html><head><title>Index of %s/%s/</title></head><body>\n", channel, index)
	fmt.Fprintf(&b, "<h1>Index of %s/%s/</h1><hr><pre>\n", channel, index)
	for _, rl := range relics {
		mtime := "-"
		if sec, err := parseMtime(rl.Mtime); err == nil {
			mtime = time.Unix(sec, 0).UTC().Format("02-Jan-2006 15:04")
		}
		fmt.Fprintf(&b, "<a href=\"%s\">%s</a>%s%s %12d\n",
			html.EscapeString(rl.Name), html.EscapeString(rl.Name),
			strings.Repeat(" ", pad(rl.Name)), mtime, rl.Size)
	}
	b.WriteString("</pre><hr></body></html>\n")

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(b.String()))
}

// pad mirrors nginx's autoindex column alignment: names are right-padded to
// at least 50 columns before the mtime/size columns begin.
func pad(name string) int {
	const col = 50
	if len(name) >= col {
		return 1
	}
	return col - len(name)
}

func parseMtime(s string) (int64, error) {
	var f float64
	_, err := fmt.Sscanf(s, "%g", &f)
	return int64(f), err
}
