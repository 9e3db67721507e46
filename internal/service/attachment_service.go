package service

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/vozsegura-api/internal/dto"
	"github.com/noah-isme/vozsegura-api/internal/models"
	"github.com/noah-isme/vozsegura-api/internal/policy"
	appErrors "github.com/noah-isme/vozsegura-api/pkg/errors"
	"github.com/noah-isme/vozsegura-api/pkg/storage"
)

type attachmentStore interface {
	FindByID(ctx context.Context, id int64) (*models.DenunciaDetail, error)
	AddAttachment(ctx context.Context, archivo *models.Archivo) error
	FindAttachment(ctx context.Context, id int64) (*models.Archivo, error)
}

type attachmentFileStorage interface {
	SaveStream(filename string, r io.Reader, limit int64) (int64, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
}

type attachmentSigner interface {
	Generate(resourceID, relPath string) (string, time.Time, error)
	Parse(token string) (resourceID, relPath string, err error)
}

// AttachmentUpload carries an uploaded file stream and its client metadata.
type AttachmentUpload struct {
	Filename string
	Size     int64
	Content  io.Reader
}

// AttachmentDownload is an opened stored file ready to be streamed.
type AttachmentDownload struct {
	File      *os.File
	Filename  string
	MimeType  string
	SizeBytes int64
}

// AttachmentServiceConfig holds upload limits and link settings.
type AttachmentServiceConfig struct {
	MaxFileSize  int64
	AllowedMIMEs []string
	APIPrefix    string
}

// AttachmentService stores evidence files for reports and serves them through signed links.
type AttachmentService struct {
	repo    attachmentStore
	storage attachmentFileStorage
	signer  attachmentSigner
	audit   auditTrail
	logger  *zap.Logger
	cfg     AttachmentServiceConfig
	mimeSet map[string]struct{}
}

// NewAttachmentService constructs the service with defaults.
func NewAttachmentService(repo attachmentStore, files attachmentFileStorage, signer attachmentSigner, audit auditWriter, logger *zap.Logger, cfg AttachmentServiceConfig) *AttachmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = 5 * 1024 * 1024
	}
	if len(cfg.AllowedMIMEs) == 0 {
		cfg.AllowedMIMEs = []string{
			"image/jpeg",
			"image/png",
			"image/gif",
			"application/pdf",
			"audio/mpeg",
			"video/mp4",
		}
	}
	if cfg.APIPrefix == "" {
		cfg.APIPrefix = "/api"
	}
	mimeSet := make(map[string]struct{}, len(cfg.AllowedMIMEs))
	for _, mt := range cfg.AllowedMIMEs {
		mimeSet[strings.ToLower(strings.TrimSpace(mt))] = struct{}{}
	}
	return &AttachmentService{
		repo:    repo,
		storage: files,
		signer:  signer,
		audit:   auditTrail{writer: audit, logger: logger},
		logger:  logger,
		cfg:     cfg,
		mimeSet: mimeSet,
	}
}

// Upload stores a file for a report the principal can access and returns a signed link to it.
func (s *AttachmentService) Upload(ctx context.Context, principal *models.Principal, denunciaID int64, upload AttachmentUpload) (*dto.ArchivoResponse, error) {
	if principal == nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "")
	}
	detail, err := s.repo.FindByID(ctx, denunciaID)
	if err != nil {
		return nil, notFoundOr(err, "denuncia not found", "load denuncia")
	}
	if !policy.CanAccessReport(principal, &detail.Denuncia) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "you cannot attach files to this denuncia")
	}
	if upload.Content == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "file is required")
	}
	if upload.Size > s.cfg.MaxFileSize {
		return nil, s.tooLarge()
	}

	reader := bufio.NewReaderSize(upload.Content, 512)
	mimeType, err := sniffMime(reader)
	if err != nil {
		return nil, err
	}
	if _, allowed := s.mimeSet[mimeType]; !allowed {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file type %s is not allowed", mimeType))
	}

	relPath := path.Join(strconv.FormatInt(denunciaID, 10), uuid.NewString()+attachmentExtension(upload.Filename, mimeType))
	written, err := s.storage.SaveStream(relPath, reader, s.cfg.MaxFileSize)
	if err != nil {
		if errors.Is(err, storage.ErrTooLarge) {
			return nil, s.tooLarge()
		}
		return nil, appErrors.Internal(err, "store attachment")
	}

	archivo := &models.Archivo{
		DenunciaID:  denunciaID,
		Nombre:      attachmentName(upload.Filename),
		Tipo:        mimeType,
		Ruta:        relPath,
		TamanoBytes: written,
	}
	if err := s.repo.AddAttachment(ctx, archivo); err != nil {
		_ = s.storage.Delete(relPath)
		return nil, appErrors.Internal(err, "save attachment metadata")
	}

	url, expiresAt, err := s.link(archivo)
	if err != nil {
		return nil, err
	}
	archivo.URL = url
	s.audit.record(ctx, principal, models.AuditActionAttachmentUpload, "denuncia", denunciaID, map[string]interface{}{
		"archivo_id": archivo.ID,
		"tipo":       mimeType,
		"bytes":      written,
	})
	return &dto.ArchivoResponse{Archivo: archivo, URL: url, ExpiresAt: expiresAt.UTC().Format(time.RFC3339)}, nil
}

// SignLinks fills the download URL of every attachment in place.
func (s *AttachmentService) SignLinks(archivos []models.Archivo) {
	for i := range archivos {
		url, _, err := s.link(&archivos[i])
		if err != nil {
			s.logger.Warn("failed to sign attachment link", zap.Int64("archivo_id", archivos[i].ID), zap.Error(err))
			continue
		}
		archivos[i].URL = url
	}
}

// Download resolves a signed token to its stored file.
func (s *AttachmentService) Download(ctx context.Context, token string) (*AttachmentDownload, error) {
	resourceID, relPath, err := s.signer.Parse(token)
	if err != nil {
		if errors.Is(err, storage.ErrLinkExpired) {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "download link expired")
		}
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid download link")
	}
	id, err := strconv.ParseInt(resourceID, 10, 64)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid download link")
	}
	archivo, err := s.repo.FindAttachment(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "archivo not found")
		}
		return nil, appErrors.Internal(err, "find attachment")
	}
	if archivo.Ruta != relPath {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid download link")
	}

	file, err := s.storage.Open(relPath)
	if err != nil {
		return nil, appErrors.Internal(err, "open attachment")
	}
	info, err := file.Stat()
	if err != nil {
		file.Close() //nolint:errcheck
		return nil, appErrors.Internal(err, "stat attachment")
	}
	return &AttachmentDownload{
		File:      file,
		Filename:  archivo.Nombre,
		MimeType:  archivo.Tipo,
		SizeBytes: info.Size(),
	}, nil
}

func (s *AttachmentService) link(archivo *models.Archivo) (string, time.Time, error) {
	token, expiresAt, err := s.signer.Generate(strconv.FormatInt(archivo.ID, 10), archivo.Ruta)
	if err != nil {
		return "", time.Time{}, appErrors.Internal(err, "sign attachment link")
	}
	return strings.TrimRight(s.cfg.APIPrefix, "/") + "/archivos/descargar/" + token, expiresAt, nil
}

func (s *AttachmentService) tooLarge() error {
	return appErrors.Clone(appErrors.ErrPayloadTooLarge, fmt.Sprintf("file exceeds %d bytes limit", s.cfg.MaxFileSize))
}

func sniffMime(reader *bufio.Reader) (string, error) {
	header, err := reader.Peek(512)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return "", appErrors.Internal(err, "inspect attachment")
	}
	if len(header) == 0 {
		return "", appErrors.Clone(appErrors.ErrValidation, "empty file")
	}
	mediaType, _, err := mime.ParseMediaType(http.DetectContentType(header))
	if err != nil {
		return "application/octet-stream", nil
	}
	return strings.ToLower(mediaType), nil
}

func attachmentExtension(original, mimeType string) string {
	switch mimeType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "application/pdf":
		return ".pdf"
	case "audio/mpeg":
		return ".mp3"
	case "video/mp4":
		return ".mp4"
	}
	if ext := strings.ToLower(filepath.Ext(original)); ext != "" && len(ext) <= 8 {
		return ext
	}
	return ".bin"
}

func attachmentName(original string) string {
	name := filepath.Base(strings.ReplaceAll(original, "\\", "/"))
	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == "/" {
		return "archivo"
	}
	if len(name) > 255 {
		name = name[len(name)-255:]
	}
	return name
}
