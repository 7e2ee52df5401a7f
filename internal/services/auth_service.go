package services

import (
	"errors"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/msalmeida123/sistema-clube-sub003/internal/apperrors"
	"github.com/msalmeida123/sistema-clube-sub003/internal/models"
)

// AuthService authenticates operators and issues the JWT whose claims feed
// the permission store.
type AuthService struct {
	db *gorm.DB
}

type JWTClaims struct {
	UsuarioID string `json:"usuario_id"`
	Email     string `json:"email"`
	IsAdmin   bool   `json:"is_admin"`
	jwt.RegisteredClaims
}

func NewAuthService(db *gorm.DB) *AuthService {
	return &AuthService{db: db}
}

func jwtSecret() []byte {
	secretKey := os.Getenv("JWT_SECRET")
	if secretKey == "" {
		secretKey = "clube-gateway-jwt-secret-change-in-production" // fallback
	}
	return []byte(secretKey)
}

// Login authenticates a user and returns a signed JWT.
func (as *AuthService) Login(req models.LoginRequest) (string, *models.Usuario, error) {
	if req.Email == "" || req.Senha == "" {
		return "", nil, apperrors.Validation("email e senha são obrigatórios")
	}

	var usuario models.Usuario
	if err := as.db.Where("email = ?", req.Email).First(&usuario).Error; err != nil {
		return "", nil, apperrors.Authentication("email ou senha inválidos")
	}
	if !usuario.Ativo {
		return "", nil, apperrors.Authorization("usuário inativo")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(usuario.SenhaHash), []byte(req.Senha)); err != nil {
		return "", nil, apperrors.Authentication("email ou senha inválidos")
	}

	token, err := as.generateJWT(usuario)
	if err != nil {
		return "", nil, err
	}
	return token, &usuario, nil
}

// generateJWT creates a 24h token for the user.
func (as *AuthService) generateJWT(usuario models.Usuario) (string, error) {
	claims := JWTClaims{
		UsuarioID: usuario.ID,
		Email:     usuario.Email,
		IsAdmin:   usuario.IsAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtSecret())
}

// ValidateToken validates a JWT and returns its claims.
func (as *AuthService) ValidateToken(tokenString string) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		return jwtSecret(), nil
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindAuthentication, "token inválido", err)
	}
	if claims, ok := token.Claims.(*JWTClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, apperrors.Authentication("token inválido")
}

// GetUsuario retrieves a user by id.
func (as *AuthService) GetUsuario(usuarioID string) (*models.Usuario, error) {
	var usuario models.Usuario
	err := as.db.Where("id = ?", usuarioID).First(&usuario).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("usuário não encontrado")
	}
	if err != nil {
		return nil, err
	}
	return &usuario, nil
}

// HashSenha hashes a password for storage. Used by seeds and user
// provisioning.
func HashSenha(senha string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(senha), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
