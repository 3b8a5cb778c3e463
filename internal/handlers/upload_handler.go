package handlers

import (
	"log"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"workfinder/internal/authz"
	"workfinder/internal/models"
	"workfinder/internal/repositories"
	"workfinder/internal/storage"
)

// допустимые расширения вложений
var allowedExt = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".webp": true,
	".pdf": true, ".doc": true, ".docx": true, ".xls": true, ".xlsx": true,
	".zip": true, ".txt": true,
}

type UploadHandler struct {
	Store   *storage.Store
	Files   *repositories.FileRepository
	MaxSize int64 // байты
}

func NewUploadHandler(store *storage.Store, files *repositories.FileRepository, maxSizeMB int64) *UploadHandler {
	return &UploadHandler{Store: store, Files: files, MaxSize: maxSizeMB << 20}
}

// Upload godoc
// @Summary Загрузка вложения
// @Tags files
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param file formData file true "Файл"
// @Param public formData bool false "Доступен без авторизации"
// @Success 201 {object} map[string]interface{}
// @Failure 413 {object} map[string]interface{}
// @Router /api/files [post]
func (h *UploadHandler) Upload(c *gin.Context) {
	userID, _ := getUserAndRole(c)

	fh, err := c.FormFile("file")
	if err != nil {
		fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "file field is required")
		return
	}
	if fh.Size > h.MaxSize {
		fail(c, http.StatusRequestEntityTooLarge, "VALIDATION_ERROR", "file too large")
		return
	}
	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if !allowedExt[ext] {
		fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "file type is not allowed")
		return
	}

	src, err := fh.Open()
	if err != nil {
		log.Printf("[files][upload] open: %v", err)
		fail(c, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to read file")
		return
	}
	defer src.Close()

	id := uuid.NewString()
	size, err := h.Store.Save(id, ext, src)
	if err != nil {
		log.Printf("[files][upload] save: %v", err)
		fail(c, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to store file")
		return
	}

	f := &models.StoredFile{
		ID:        id,
		OwnerID:   userID,
		Name:      filepath.Base(fh.Filename),
		Ext:       ext,
		Size:      size,
		Public:    c.PostForm("public") == "true",
		CreatedAt: time.Now(),
	}
	if err := h.Files.Create(f); err != nil {
		log.Printf("[files][upload] record: %v", err)
		// файл без записи бесполезен, подчищаем
		_ = h.Store.Remove(id, ext)
		fail(c, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to store file")
		return
	}
	ok(c, http.StatusCreated, gin.H{"file": f})
}

// Download godoc
// @Summary Скачивание вложения
// @Tags files
// @Produce octet-stream
// @Security BearerAuth
// @Param id path string true "ID файла"
// @Success 200 {file} binary
// @Router /api/files/{id} [get]
func (h *UploadHandler) Download(c *gin.Context) {
	userID, roleID := getUserAndRole(c)

	f, err := h.Files.GetByID(c.Param("id"))
	if err != nil {
		log.Printf("[files][download] %v", err)
		fail(c, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to load file")
		return
	}
	if f == nil {
		fail(c, http.StatusNotFound, "NOT_FOUND", "file not found")
		return
	}
	if !f.Public && f.OwnerID != userID && !authz.IsStaff(roleID) {
		fail(c, http.StatusForbidden, "FORBIDDEN", "file is private")
		return
	}

	c.FileAttachment(h.Store.FilePath(f.ID, f.Ext), f.Name)
}
