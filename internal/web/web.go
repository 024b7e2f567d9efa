package web

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/eion/usuarios/internal/users"
)

//go:embed templates/*
var templateFiles embed.FS

const (
	pageTitle      = "Cadastro de Usuário"
	msgRegistered  = "Usuário cadastrado com sucesso!"
	msgUnreachable = "Não foi possível concluir o cadastro. Tente novamente mais tarde."
)

// UserCreator is the part of the API the form needs
type UserCreator interface {
	CreateUser(ctx context.Context, form RegistrationForm) (*users.User, error)
}

// FormService renders the registration form and forwards submissions to the API
type FormService struct {
	api    UserCreator
	logger *zap.Logger
}

// NewFormService creates a new form service
func NewFormService(api UserCreator, logger *zap.Logger) *FormService {
	return &FormService{
		api:    api,
		logger: logger,
	}
}

type pageData struct {
	Title   string
	Form    RegistrationForm
	Success string
	Error   string
	Fields  map[string]string
}

// SetupRoutes loads the templates and registers the form routes
func (fs *FormService) SetupRoutes(router *gin.Engine) error {
	tmpl, err := template.ParseFS(templateFiles, "templates/*.html")
	if err != nil {
		return err
	}
	router.SetHTMLTemplate(tmpl)

	router.GET("/", fs.serveForm)
	router.POST("/cadastro", fs.submitForm)
	return nil
}

func (fs *FormService) serveForm(c *gin.Context) {
	c.HTML(http.StatusOK, "cadastro.html", pageData{Title: pageTitle})
}

func (fs *FormService) submitForm(c *gin.Context) {
	form := RegistrationForm{
		Email: c.PostForm("email"),
		Name:  c.PostForm("name"),
		Age:   c.PostForm("age"),
	}

	user, err := fs.api.CreateUser(c.Request.Context(), form)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode < http.StatusInternalServerError {
			c.HTML(apiErr.StatusCode, "cadastro.html", pageData{
				Title:  pageTitle,
				Form:   form,
				Error:  apiErr.Message,
				Fields: apiErr.Fields,
			})
			return
		}

		fs.logger.Error("Failed to register user through api", zap.Error(err))
		c.HTML(http.StatusBadGateway, "cadastro.html", pageData{
			Title: pageTitle,
			Form:  form,
			Error: msgUnreachable,
		})
		return
	}

	fs.logger.Info("User registered from form", zap.String("user_id", user.ID))
	c.HTML(http.StatusOK, "cadastro.html", pageData{
		Title:   pageTitle,
		Success: msgRegistered,
	})
}
