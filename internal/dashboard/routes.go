// Package dashboard exposes the engine over HTTP and websockets: push
// facts in, pull the current graph and incident state out, watch
// derived updates arrive live.
package dashboard

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/rawblock/attackgraph-engine/internal/bench"
	"github.com/rawblock/attackgraph-engine/internal/engine"
	"github.com/rawblock/attackgraph-engine/internal/export"
	"github.com/rawblock/attackgraph-engine/internal/investigation"
	"github.com/rawblock/attackgraph-engine/pkg/schema"
)

// Handler holds everything the HTTP layer needs: the live engine, the
// websocket hub, the incident manager, and the benchmark runner.
type Handler struct {
	eng         *engine.Engine
	wsHub       *Hub
	invManager  *investigation.Manager
	benchRunner *bench.Runner

	mu            sync.Mutex
	nodes         map[string]bool
	edges         map[string]export.Edge
	compromised   map[string]bool
	privileges    map[string]schema.Privilege
	owned         map[string]bool
	goalHosts     map[string]bool
	attackerStart string
	targetNode    string
}

// SetupRouter builds the gin engine, wiring eng's derived updates to
// wsHub, invManager and this handler's own live graph snapshot.
func SetupRouter(eng *engine.Engine, wsHub *Hub, invManager *investigation.Manager, benchRunner *bench.Runner) *gin.Engine {
	r := gin.Default()

	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if allowedOrigins == "" || allowedOrigins == "*" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		} else {
			for _, allowed := range strings.Split(allowedOrigins, ",") {
				if strings.TrimSpace(allowed) == origin {
					c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
					break
				}
			}
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	h := &Handler{
		eng:         eng,
		wsHub:       wsHub,
		invManager:  invManager,
		benchRunner: benchRunner,
		nodes:       make(map[string]bool),
		edges:       make(map[string]export.Edge),
		compromised: make(map[string]bool),
		privileges:  make(map[string]schema.Privilege),
		owned:       make(map[string]bool),
		goalHosts:   make(map[string]bool),
	}
	eng.Subscribe(h.trackGraph)
	eng.Subscribe(h.broadcastUpdates)
	eng.Subscribe(invManager.Subscriber())

	pub := r.Group("/api/v1")
	{
		pub.GET("/health", h.handleHealth)
		pub.GET("/stream", wsHub.Subscribe)
		pub.GET("/graph", h.handleGraph)
		pub.POST("/facts/vulnerability", h.handleAddVulnerability)
		pub.POST("/facts/network-access", h.handleAddNetworkAccess)
		pub.POST("/facts/firewall-rule", h.handleAddFirewallRule)
		pub.POST("/facts/attacker-location", h.handleAddAttackerLocation)
		pub.POST("/facts/attacker-goal", h.handleAddAttackerGoal)
		pub.POST("/step", h.handleStep)
		pub.GET("/risk/:host", h.handleHostRisk)
	}

	auth := r.Group("/api/v1")
	auth.Use(AuthMiddleware())
	auth.Use(NewRateLimiter(60, 10).Middleware())
	{
		inv := auth.Group("/investigation")
		{
			inv.POST("", h.handleCreateIncident)
			inv.GET("/:id", h.handleGetIncident)
			inv.POST("/:id/tag", h.handleTagHost)
			inv.GET("/:id/timeline", h.handleGetTimeline)
		}
		auth.POST("/bench/run", h.handleStartBench)
		auth.GET("/bench/progress", h.handleBenchProgress)
	}

	r.Static("/dashboard", "./public")
	return r
}

func (h *Handler) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "operational",
		"engine": "attackgraph-engine",
	})
}

func (h *Handler) trackGraph(effectiveAccess, execCode, ownsMachine, _ []engine.Update) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, u := range effectiveAccess {
		ea, ok := u.Record.(schema.EffectiveAccess)
		if !ok {
			continue
		}
		h.nodes[ea.Src] = true
		h.nodes[ea.Dst] = true
		if u.Diff > 0 {
			h.edges[ea.Key()] = export.Edge{Src: ea.Src, Dst: ea.Dst, Service: ea.Service}
		} else {
			delete(h.edges, ea.Key())
		}
	}
	for _, u := range execCode {
		ec, ok := u.Record.(schema.ExecCode)
		if !ok {
			continue
		}
		if u.Diff > 0 {
			h.compromised[ec.Host] = true
			h.privileges[ec.Host] = ec.Privilege
		} else {
			delete(h.compromised, ec.Host)
			delete(h.privileges, ec.Host)
		}
	}
	for _, u := range ownsMachine {
		om, ok := u.Record.(schema.OwnsMachine)
		if !ok {
			continue
		}
		if u.Diff > 0 {
			h.owned[om.Host] = true
		} else {
			delete(h.owned, om.Host)
		}
	}
}

func (h *Handler) handleHostRisk(c *gin.Context) {
	host := c.Param("host")
	h.mu.Lock()
	_, hasExec := h.compromised[host]
	privilege := h.privileges[host]
	owns := h.owned[host]
	isGoal := h.goalHosts[host]
	h.mu.Unlock()

	c.JSON(http.StatusOK, investigation.ScoreHost(host, privilege, hasExec, owns, isGoal, nil))
}

func (h *Handler) handleGraph(c *gin.Context) {
	h.mu.Lock()
	g := export.Graph{
		Compromised:   make(map[string]bool, len(h.compromised)),
		AttackerStart: h.attackerStart,
		TargetNode:    h.targetNode,
	}
	for n := range h.nodes {
		g.Nodes = append(g.Nodes, n)
	}
	for _, e := range h.edges {
		g.Edges = append(g.Edges, e)
	}
	for n, v := range h.compromised {
		g.Compromised[n] = v
	}
	h.mu.Unlock()

	c.Writer.Header().Set("Content-Type", "text/vnd.graphviz")
	_ = export.WriteDOT(c.Writer, "Attack Graph", g)
}

func (h *Handler) broadcastUpdates(effectiveAccess, execCode, ownsMachine, goalReached []engine.Update) {
	if len(effectiveAccess)+len(execCode)+len(ownsMachine)+len(goalReached) == 0 {
		return
	}
	payload, err := json.Marshal(gin.H{
		"type":            "update",
		"effectiveAccess": effectiveAccess,
		"execCode":        execCode,
		"ownsMachine":     ownsMachine,
		"goalReached":     goalReached,
	})
	if err != nil {
		return
	}
	h.wsHub.Broadcast(payload)
}

func (h *Handler) handleAddVulnerability(c *gin.Context) {
	var req struct {
		Host            string `json:"host"`
		CVE             string `json:"cve"`
		Service         string `json:"service"`
		GrantsPrivilege string `json:"grantsPrivilege"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	h.eng.Vulnerabilities.Insert(schema.Vulnerability{
		Host: req.Host, CVE: req.CVE, Service: req.Service, GrantsPrivilege: parsePrivilege(req.GrantsPrivilege),
	})
	c.JSON(http.StatusAccepted, gin.H{"status": "queued"})
}

func (h *Handler) handleAddNetworkAccess(c *gin.Context) {
	var req struct{ Src, Dst, Service string }
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	h.eng.NetworkAccess.Insert(schema.NetworkAccess{Src: req.Src, Dst: req.Dst, Service: req.Service})
	c.JSON(http.StatusAccepted, gin.H{"status": "queued"})
}

func (h *Handler) handleAddFirewallRule(c *gin.Context) {
	var req struct {
		SrcZone, Dst, Service string
		Action                string
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	action := schema.ActionAllow
	if req.Action == "deny" {
		action = schema.ActionDeny
	}
	h.eng.FirewallRules.Insert(schema.FirewallRule{SrcZone: req.SrcZone, Dst: req.Dst, Service: req.Service, Action: action})
	c.JSON(http.StatusAccepted, gin.H{"status": "queued"})
}

func (h *Handler) handleAddAttackerLocation(c *gin.Context) {
	var req struct {
		AttackerID string `json:"attackerId"`
		Host       string `json:"host"`
		Privilege  string `json:"privilege"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	h.mu.Lock()
	h.attackerStart = req.Host
	h.mu.Unlock()
	h.eng.AttackerLocations.Insert(schema.AttackerLocation{AttackerID: req.AttackerID, Host: req.Host, Privilege: parsePrivilege(req.Privilege)})
	c.JSON(http.StatusAccepted, gin.H{"status": "queued"})
}

func (h *Handler) handleAddAttackerGoal(c *gin.Context) {
	var req struct {
		AttackerID string `json:"attackerId"`
		TargetHost string `json:"targetHost"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	h.mu.Lock()
	h.targetNode = req.TargetHost
	h.goalHosts[req.TargetHost] = true
	h.mu.Unlock()
	h.eng.AttackerGoals.Insert(schema.AttackerGoal{AttackerID: req.AttackerID, TargetHost: req.TargetHost})
	c.JSON(http.StatusAccepted, gin.H{"status": "queued"})
}

// handleStep advances every input handle to the requested logical time
// and runs the engine forward. POST { "time": 3 }
func (h *Handler) handleStep(c *gin.Context) {
	var req struct {
		Time uint64 `json:"time"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	h.eng.Vulnerabilities.AdvanceTo(req.Time)
	h.eng.NetworkAccess.AdvanceTo(req.Time)
	h.eng.FirewallRules.AdvanceTo(req.Time)
	h.eng.AttackerLocations.AdvanceTo(req.Time)
	h.eng.AttackerGoals.AdvanceTo(req.Time)
	h.eng.Step()
	c.JSON(http.StatusOK, gin.H{"status": "stepped", "time": req.Time})
}

func (h *Handler) handleCreateIncident(c *gin.Context) {
	var req struct {
		ID          string   `json:"id"`
		Name        string   `json:"name"`
		Description string   `json:"description"`
		AttackerID  string   `json:"attackerId"`
		GoalHosts   []string `json:"goalHosts"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	inc := h.invManager.CreateIncident(req.ID, req.Name, req.Description, req.AttackerID, req.GoalHosts)
	c.JSON(http.StatusCreated, inc)
}

func (h *Handler) handleGetIncident(c *gin.Context) {
	inc := h.invManager.GetIncident(c.Param("id"))
	if inc == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "incident not found"})
		return
	}
	c.JSON(http.StatusOK, inc)
}

func (h *Handler) handleTagHost(c *gin.Context) {
	inc := h.invManager.GetIncident(c.Param("id"))
	if inc == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "incident not found"})
		return
	}
	var req struct{ Host, Label, Role, Notes, TaggedBy string }
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	inc.TagHost(req.Host, req.Label, req.Role, req.Notes, req.TaggedBy)
	c.JSON(http.StatusOK, inc)
}

func (h *Handler) handleGetTimeline(c *gin.Context) {
	inc := h.invManager.GetIncident(c.Param("id"))
	if inc == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "incident not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"timeline": inc.Timeline})
}

func (h *Handler) handleStartBench(c *gin.Context) {
	sizes := []int{10, 50, 100}
	if s := c.Query("sizes"); s != "" {
		sizes = nil
		for _, part := range strings.Split(s, ",") {
			n, err := strconv.Atoi(strings.TrimSpace(part))
			if err == nil && n > 0 {
				sizes = append(sizes, n)
			}
		}
	}
	var topologies []bench.Topology
	for _, n := range sizes {
		topologies = append(topologies, bench.Chain(n))
	}
	go h.benchRunner.Run(context.Background(), topologies)
	c.JSON(http.StatusAccepted, gin.H{"status": "started", "topologies": len(topologies)})
}

func (h *Handler) handleBenchProgress(c *gin.Context) {
	c.JSON(http.StatusOK, h.benchRunner.Progress())
}

func parsePrivilege(s string) schema.Privilege {
	switch s {
	case "root":
		return schema.PrivilegeRoot
	case "user":
		return schema.PrivilegeUser
	default:
		return schema.PrivilegeNone
	}
}
