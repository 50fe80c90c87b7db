package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lumenbrowser/lumen/internal/shared/validate"
)

type addressRequest struct {
	Address string `json:"address"`
}

type findRequest struct {
	Text    string `json:"text"`
	Forward *bool  `json:"forward"`
}

type omniboxRequest struct {
	Input string `json:"input" binding:"required"`
}

func (s *Server) listTabs(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"tabs":      s.deps.Tabs.List(),
		"active_id": s.deps.Tabs.ActiveID(),
	})
}

func (s *Server) createTab(c *gin.Context) {
	var req addressRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	if err := validate.Address(req.Address, false); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tab, err := s.deps.Tabs.Create(c.Request.Context(), req.Address)
	if err != nil {
		s.log.Error("create tab", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, tab)
}

func (s *Server) getTab(c *gin.Context) {
	tabID := c.Param("id")
	if err := validate.ID(tabID, "tab id", true); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	tab, ok := s.deps.Tabs.Get(tabID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "tab not found"})
		return
	}
	c.JSON(http.StatusOK, tab)
}

func (s *Server) activateTab(c *gin.Context) {
	tabID := c.Param("id")
	if err := validate.ID(tabID, "tab id", true); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	changed := s.deps.Tabs.Activate(c.Request.Context(), tabID)
	c.JSON(http.StatusOK, gin.H{"changed": changed})
}

func (s *Server) closeTab(c *gin.Context) {
	tabID := c.Param("id")
	if err := validate.ID(tabID, "tab id", true); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	changed, err := s.deps.Tabs.Close(c.Request.Context(), tabID)
	if err != nil {
		// The tab is gone but the session checkpoint failed.
		s.log.Error("close checkpoint", zap.String("tab", tabID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "changed": changed})
		return
	}
	c.JSON(http.StatusOK, gin.H{"changed": changed})
}

func (s *Server) navigateTab(c *gin.Context) {
	tabID := c.Param("id")
	if err := validate.ID(tabID, "tab id", true); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var req addressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := validate.Address(req.Address, true); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	changed := s.deps.Tabs.NavigateTo(c.Request.Context(), tabID, req.Address)
	c.JSON(http.StatusOK, gin.H{"changed": changed})
}

func (s *Server) navigationState(c *gin.Context) {
	activeID := s.deps.Tabs.ActiveID()
	tab, ok := s.deps.Tabs.Get(activeID)
	if !ok {
		c.JSON(http.StatusOK, gin.H{})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"tab_id":  tab.ID,
		"address": tab.Address,
		"title":   tab.Title,
		"loading": tab.Loading,
	})
}

func (s *Server) back(c *gin.Context) {
	s.deps.Tabs.Back(c.Request.Context())
	c.Status(http.StatusNoContent)
}

func (s *Server) forward(c *gin.Context) {
	s.deps.Tabs.Forward(c.Request.Context())
	c.Status(http.StatusNoContent)
}

func (s *Server) reload(c *gin.Context) {
	s.deps.Tabs.Reload(c.Request.Context())
	c.Status(http.StatusNoContent)
}

// omnibox resolves free-form input and navigates the active tab to the
// result.
func (s *Server) omnibox(c *gin.Context) {
	var req omniboxRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := validate.OmniboxInput(req.Input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	address := s.deps.Omnibox.Resolve(req.Input)
	changed := s.deps.Tabs.NavigateTo(c.Request.Context(), s.deps.Tabs.ActiveID(), address)
	c.JSON(http.StatusOK, gin.H{"address": address, "changed": changed})
}

func (s *Server) findState(c *gin.Context) {
	tabID := c.Param("id")
	if err := validate.ID(tabID, "tab id", true); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	open, ok := s.deps.Tabs.FindState(tabID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "tab not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"open": open})
}

func (s *Server) findStart(c *gin.Context) {
	tabID := c.Param("id")
	if err := validate.ID(tabID, "tab id", true); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var req findRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := validate.FindText(req.Text); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	changed := s.deps.Tabs.FindStart(c.Request.Context(), tabID, req.Text)
	c.JSON(http.StatusOK, gin.H{"changed": changed})
}

func (s *Server) findNext(c *gin.Context) {
	tabID := c.Param("id")
	if err := validate.ID(tabID, "tab id", true); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var req findRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := validate.FindText(req.Text); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	forward := true
	if req.Forward != nil {
		forward = *req.Forward
	}
	changed := s.deps.Tabs.FindNext(c.Request.Context(), tabID, req.Text, forward)
	c.JSON(http.StatusOK, gin.H{"changed": changed})
}

func (s *Server) findStop(c *gin.Context) {
	tabID := c.Param("id")
	if err := validate.ID(tabID, "tab id", true); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	changed := s.deps.Tabs.FindStop(c.Request.Context(), tabID)
	c.JSON(http.StatusOK, gin.H{"changed": changed})
}
