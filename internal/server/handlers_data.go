package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lumenbrowser/lumen/internal/shared/types"
	"github.com/lumenbrowser/lumen/internal/shared/validate"
	"github.com/lumenbrowser/lumen/internal/store"
)

const defaultHistoryLimit = 100

type bookmarkRequest struct {
	Address  *string `json:"address"` // nil marks a separator
	Title    string  `json:"title"`
	Icon     *string `json:"icon"`
	FolderID *string `json:"folder_id"`
}

type folderRequest struct {
	Name     string  `json:"name"`
	ParentID *string `json:"parent_id"`
}

type moveRequest struct {
	FolderID *string `json:"folder_id"`
}

type settingRequest struct {
	Value string `json:"value"`
}

func (s *Server) listBookmarks(c *gin.Context) {
	folderID := optionalQueryID(c, "folder_id")
	bookmarks, err := s.deps.Store.ListBookmarks(folderID)
	if err != nil {
		s.log.Warn("list bookmarks", zap.Error(err))
		bookmarks = []types.Bookmark{}
	}
	c.JSON(http.StatusOK, gin.H{"bookmarks": bookmarks})
}

func (s *Server) addBookmark(c *gin.Context) {
	var req bookmarkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Address != nil {
		if err := validate.Address(*req.Address, true); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	if err := validate.Title(req.Title, "title"); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	bm, err := s.deps.Store.AddBookmark(req.Address, req.Title, req.Icon, req.FolderID)
	if err != nil {
		s.log.Error("add bookmark", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, bm)
}

func (s *Server) updateBookmark(c *gin.Context) {
	bookmarkID := c.Param("id")
	if err := validate.ID(bookmarkID, "bookmark id", true); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var req bookmarkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	bm := &types.Bookmark{ID: bookmarkID, Address: req.Address, Title: req.Title, Icon: req.Icon, FolderID: req.FolderID}
	if err := s.deps.Store.UpdateBookmark(bm); err != nil {
		s.writeStoreError(c, "update bookmark", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"changed": true})
}

func (s *Server) moveBookmark(c *gin.Context) {
	bookmarkID := c.Param("id")
	if err := validate.ID(bookmarkID, "bookmark id", true); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var req moveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.deps.Store.MoveBookmark(bookmarkID, req.FolderID); err != nil {
		s.writeStoreError(c, "move bookmark", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"changed": true})
}

func (s *Server) deleteBookmark(c *gin.Context) {
	bookmarkID := c.Param("id")
	if err := validate.ID(bookmarkID, "bookmark id", true); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.deps.Store.DeleteBookmark(bookmarkID); err != nil {
		s.writeStoreError(c, "delete bookmark", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"changed": true})
}

func (s *Server) listFolders(c *gin.Context) {
	parentID := optionalQueryID(c, "parent_id")
	folders, err := s.deps.Store.ListFolders(parentID)
	if err != nil {
		s.log.Warn("list folders", zap.Error(err))
		folders = []types.BookmarkFolder{}
	}
	c.JSON(http.StatusOK, gin.H{"folders": folders})
}

func (s *Server) addFolder(c *gin.Context) {
	var req folderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := validate.Title(req.Name, "name"); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	folder, err := s.deps.Store.AddFolder(req.Name, req.ParentID)
	if err != nil {
		s.log.Error("add folder", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, folder)
}

func (s *Server) renameFolder(c *gin.Context) {
	folderID := c.Param("id")
	if err := validate.ID(folderID, "folder id", true); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var req folderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := validate.Title(req.Name, "name"); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.deps.Store.RenameFolder(folderID, req.Name); err != nil {
		s.writeStoreError(c, "rename folder", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"changed": true})
}

func (s *Server) deleteFolder(c *gin.Context) {
	folderID := c.Param("id")
	if err := validate.ID(folderID, "folder id", true); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.deps.Store.DeleteFolder(folderID); err != nil {
		s.writeStoreError(c, "delete folder", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"changed": true})
}

func (s *Server) listHistory(c *gin.Context) {
	limit := defaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = parsed
	}

	var (
		entries []types.HistoryEntry
		err     error
	)
	if term := c.Query("q"); term != "" {
		entries, err = s.deps.Store.SearchHistory(term, limit)
	} else {
		entries, err = s.deps.Store.RecentHistory(limit)
	}
	if err != nil {
		s.log.Warn("list history", zap.Error(err))
		entries = []types.HistoryEntry{}
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

func (s *Server) deleteHistory(c *gin.Context) {
	entryID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "history id must be an integer"})
		return
	}
	if err := s.deps.Store.DeleteHistory(entryID); err != nil {
		s.writeStoreError(c, "delete history entry", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"changed": true})
}

func (s *Server) clearHistory(c *gin.Context) {
	if err := s.deps.Store.ClearHistory(); err != nil {
		s.writeStoreError(c, "clear history", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"changed": true})
}

func (s *Server) listDownloads(c *gin.Context) {
	list, err := s.deps.Downloads.List()
	if err != nil {
		s.log.Warn("list downloads", zap.Error(err))
		list = []types.Download{}
	}
	c.JSON(http.StatusOK, gin.H{"downloads": list})
}

func (s *Server) clearDownloads(c *gin.Context) {
	if err := s.deps.Store.ClearFinishedDownloads(); err != nil {
		s.writeStoreError(c, "clear downloads", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"changed": true})
}

func (s *Server) listSettings(c *gin.Context) {
	settings, err := s.deps.Store.AllSettings()
	if err != nil {
		s.log.Warn("list settings", zap.Error(err))
		settings = []types.Setting{}
	}
	c.JSON(http.StatusOK, gin.H{"settings": settings})
}

func (s *Server) getSetting(c *gin.Context) {
	key := c.Param("key")
	if err := validate.SettingKey(key); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	value, err := s.deps.Store.GetSetting(key)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "setting not found"})
		return
	}
	if err != nil {
		s.writeStoreError(c, "get setting", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"key": key, "value": value})
}

func (s *Server) setSetting(c *gin.Context) {
	key := c.Param("key")
	if err := validate.SettingKey(key); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var req settingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.deps.Store.SetSetting(key, req.Value); err != nil {
		s.writeStoreError(c, "set setting", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"changed": true})
}

func (s *Server) deleteSetting(c *gin.Context) {
	key := c.Param("key")
	if err := validate.SettingKey(key); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.deps.Store.DeleteSetting(key); err != nil {
		s.writeStoreError(c, "delete setting", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"changed": true})
}

func (s *Server) saveSession(c *gin.Context) {
	if err := s.deps.Tabs.SaveSession(); err != nil {
		s.writeStoreError(c, "save session", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"saved": true})
}

func (s *Server) restoreSession(c *gin.Context) {
	if err := s.deps.Tabs.RestoreSession(c.Request.Context()); err != nil {
		s.log.Error("restore session", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"tabs": len(s.deps.Tabs.List())})
}

// writeStoreError maps a failed user-initiated mutation to a 500.
func (s *Server) writeStoreError(c *gin.Context, op string, err error) {
	s.log.Error(op, zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

// optionalQueryID reads an optional id query parameter, returning nil
// when absent.
func optionalQueryID(c *gin.Context, name string) *string {
	raw := c.Query(name)
	if raw == "" {
		return nil
	}
	return &raw
}
