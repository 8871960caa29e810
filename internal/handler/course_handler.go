package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/coursemark/coursemark-api/internal/models"
	"github.com/coursemark/coursemark-api/internal/service"
	appErrors "github.com/coursemark/coursemark-api/pkg/errors"
	"github.com/coursemark/coursemark-api/pkg/response"
)

// CourseHandler exposes the course catalog endpoints.
type CourseHandler struct {
	courses *service.CourseService

	// defaultUniversityID scopes public lookups that carry no university of
	// their own.
	defaultUniversityID string
}

// NewCourseHandler constructs handler.
func NewCourseHandler(courses *service.CourseService, defaultUniversityID string) *CourseHandler {
	return &CourseHandler{courses: courses, defaultUniversityID: defaultUniversityID}
}

// List godoc
// @Summary List catalog courses for the caller's university
// @Tags Courses
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /courses [get]
func (h *CourseHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	courses, err := h.courses.List(c.Request.Context(), claims.UniversityID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, courses, nil)
}

// Autocomplete godoc
// @Summary Search catalog courses by code or name prefix
// @Tags Courses
// @Produce json
// @Param q query string true "Search term"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /courses/autocomplete [get]
func (h *CourseHandler) Autocomplete(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	courses, err := h.courses.Autocomplete(c.Request.Context(), claims.UniversityID, c.Query("q"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, courses, nil)
}

// Lookup godoc
// @Summary Look up a course offering by code, semester and year
// @Tags Courses
// @Produce json
// @Param code query string true "Course code"
// @Param semester query string true "Semester"
// @Param year query int true "Year"
// @Param university_id query string false "University ID, defaults to the configured catalog university"
// @Success 200 {object} response.Envelope
// @Router /courses/lookup [get]
func (h *CourseHandler) Lookup(c *gin.Context) {
	year, err := strconv.Atoi(c.Query("year"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "year must be a number"))
		return
	}
	universityID := c.Query("university_id")
	if universityID == "" {
		universityID = h.defaultUniversityID
	}
	course, err := h.courses.Lookup(c.Request.Context(), models.CourseFilter{
		UniversityID: universityID,
		CourseCode:   c.Query("code"),
		Semester:     c.Query("semester"),
		Year:         year,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, course, nil)
}

// Get godoc
// @Summary Get one catalog course with its assessment template
// @Tags Courses
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /courses/{id} [get]
func (h *CourseHandler) Get(c *gin.Context) {
	course, err := h.courses.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, course, nil)
}

// Create godoc
// @Summary Create a catalog course
// @Tags Courses
// @Accept json
// @Produce json
// @Param payload body service.CreateCourseRequest true "Course payload"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /courses [post]
func (h *CourseHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.CreateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	course, err := h.courses.Create(c.Request.Context(), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, course)
}

// Import godoc
// @Summary Import a scraped catalog course
// @Tags Courses
// @Accept json
// @Produce json
// @Param payload body service.CreateCourseRequest true "Scraped course payload"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /courses/import [post]
func (h *CourseHandler) Import(c *gin.Context) {
	var req service.CreateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	course, err := h.courses.Import(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, course)
}
