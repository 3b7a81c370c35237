package powerswitch

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"
)

const (
	testChallenge = "abc123"
	sessionCookie = "DLILPC"
)

// fakeSwitch emulates the web UI of an 8-outlet switch
type fakeSwitch struct {
	mu sync.Mutex

	names  [OutletCount]string
	states [OutletCount]bool
	stuck  map[int]bool

	username string
	password string

	// admin selects the administrator status page layout
	admin bool
	// cookie makes login.tgi set a session cookie
	cookie bool
	// noChallenge drops the Challenge input from the login page
	noChallenge bool
	// failIndex makes /index.htm answer with this status code
	failIndex int
	// dropIndex closes the connection for this many /index.htm requests
	dropIndex int

	counts   map[string]int
	commands []string

	server *httptest.Server
}

// newFakeSwitch starts the fake. Options run before the server starts; after
// that the fake is only changed through its locked setters.
func newFakeSwitch(t *testing.T, opts ...func(*fakeSwitch)) *fakeSwitch {
	t.Helper()

	f := &fakeSwitch{
		username: DefaultUsername,
		password: DefaultPassword,
		admin:    true,
		stuck:    make(map[int]bool),
		counts:   make(map[string]int),
	}
	for i := range f.names {
		f.names[i] = fmt.Sprintf("Outlet %d", i+1)
	}
	for _, opt := range opts {
		opt(f)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", f.handleRoot)
	mux.HandleFunc("/login.tgi", f.handleLogin)
	mux.HandleFunc("/index.htm", f.authorized(f.handleIndex))
	mux.HandleFunc("/outlet", f.authorized(f.handleOutlet))
	mux.HandleFunc("/unitnames.cgi", f.authorized(f.handleRename))

	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

// endpoint returns an endpoint for the fake with fast timings
func (f *fakeSwitch) endpoint() Endpoint {
	ep := DefaultEndpoint(strings.TrimPrefix(f.server.URL, "http://"))
	ep.Timeout = 2 * time.Second
	ep.RetryDelay = time.Millisecond
	ep.MaxRetryDelay = 5 * time.Millisecond
	ep.CycleDelay = 0
	return ep
}

func (f *fakeSwitch) count(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counts[path]
}

func (f *fakeSwitch) commandLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.commands...)
}

func (f *fakeSwitch) set(index int, on bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.states[index-1] = on
}

func (f *fakeSwitch) setName(index int, name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.names[index-1] = name
}

func (f *fakeSwitch) isOn(index int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.states[index-1]
}

func (f *fakeSwitch) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	f.mu.Lock()
	f.counts["/"]++
	noChallenge := f.noChallenge
	f.mu.Unlock()

	var b strings.Builder
	b.WriteString(`<html><body><form action="/login.tgi" method="post">`)
	b.WriteString(`<input type="text" name="Username" value="">`)
	b.WriteString(`<input type="password" name="Password" value="">`)
	if !noChallenge {
		fmt.Fprintf(&b, `<input type="hidden" name="Challenge" value="%s">`, testChallenge)
	}
	b.WriteString(`<input type="submit" value="Submit"></form></body></html>`)
	_, _ = w.Write([]byte(b.String()))
}

func (f *fakeSwitch) handleLogin(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.counts["/login.tgi"]++
	f.mu.Unlock()

	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if r.Header.Get("Content-Type") != "application/x-www-form-urlencoded" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if err := r.ParseForm(); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	want := ChallengeDigest(testChallenge, f.username, f.password)
	if r.PostForm.Get("Username") != f.username || r.PostForm.Get("Password") != want {
		w.WriteHeader(http.StatusForbidden)
		return
	}

	if f.cookie {
		http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: "session-1", Path: "/"})
	}
	_, _ = w.Write([]byte("<html>ok</html>"))
}

// authorized accepts the session cookie in cookie mode and Basic credentials
// otherwise
func (f *fakeSwitch) authorized(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if f.cookie {
			c, err := r.Cookie(sessionCookie)
			if err != nil || c.Value != "session-1" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
		} else {
			user, pass, ok := r.BasicAuth()
			if !ok || user != f.username || pass != f.password {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
		}
		next(w, r)
	}
}

func (f *fakeSwitch) handleIndex(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.counts["/index.htm"]++
	if f.dropIndex > 0 {
		f.dropIndex--
		f.mu.Unlock()
		hj, ok := w.(http.Hijacker)
		if !ok {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		conn, _, err := hj.Hijack()
		if err == nil {
			_ = conn.Close()
		}
		return
	}
	if f.failIndex != 0 {
		code := f.failIndex
		f.mu.Unlock()
		w.WriteHeader(code)
		return
	}
	outlets := make([]Outlet, OutletCount)
	for i := range outlets {
		state := StateOff
		if f.states[i] {
			state = StateOn
		}
		outlets[i] = Outlet{Index: i + 1, Name: f.names[i], State: state}
	}
	admin := f.admin
	f.mu.Unlock()

	_, _ = w.Write([]byte(statusPage(admin, outlets)))
}

func (f *fakeSwitch) handleOutlet(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts["/outlet"]++
	f.commands = append(f.commands, r.URL.RawQuery)

	key, value, ok := strings.Cut(r.URL.RawQuery, "=")
	index, err := strconv.Atoi(key)
	if !ok || err != nil || index < 1 || index > OutletCount {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if !f.stuck[index] {
		f.states[index-1] = value == "ON"
	}
	_, _ = w.Write([]byte("<html>ok</html>"))
}

func (f *fakeSwitch) handleRename(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts["/unitnames.cgi"]++

	for key, values := range r.URL.Query() {
		index, err := strconv.Atoi(strings.TrimPrefix(key, "outname"))
		if err != nil || index < 1 || index > OutletCount || len(values) == 0 {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.names[index-1] = values[0]
	}
	_, _ = w.Write([]byte("<html>ok</html>"))
}

// statusPage renders an index.htm in the administrator or user layout. The
// user layout has a "#" header cell and space-padded outlet numbers.
func statusPage(admin bool, outlets []Outlet) string {
	var b strings.Builder
	b.WriteString("<html><head><title>Outlet Control</title></head><body>\n")
	b.WriteString("<table><tr><td>Controller: Web Power Switch</td></tr></table>\n")
	b.WriteString("<table width=\"100%\">\n")
	if admin {
		b.WriteString("<tr><td>Individual Control</td></tr>\n")
		b.WriteString("<tr><td>#</td><td>Name</td><td>State</td><td>Action</td></tr>\n")
	} else {
		b.WriteString("<tr><th>#</th><th>Name</th><th>State</th><th>Action</th><th></th></tr>\n")
	}
	for _, o := range outlets {
		number := strconv.Itoa(o.Index)
		if !admin {
			number = " " + number
		}
		color := "red"
		action := "ON"
		if o.State == StateOn {
			color = "green"
			action = "OFF"
		}
		fmt.Fprintf(&b,
			"<tr><td>%s</td><td> %s </td><td><b><font color=%s>%s</font></b></td>"+
				"<td><a href=outlet?%d=%s>Switch %s</a></td><td><a href=outlet?%d=CCL>Cycle</a></td></tr>\n",
			number, o.Name, color, o.State, o.Index, action, action, o.Index)
	}
	b.WriteString("</table></body></html>\n")
	return b.String()
}
