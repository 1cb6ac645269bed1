package main

// @title UserHub API
// @version 1.0
// @description User accounts, authentication and email verification service
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.url http://github.com/olenev/userhub
// @contact.email support@example.com

// @license.name MIT
// @license.url https://github.com/olenev/userhub/blob/main/LICENSE

// @host localhost:8080
// @BasePath /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

// @tag.name Auth
// @tag.description Authentication and email verification endpoints

// @tag.name Users
// @tag.description Profile endpoints for the authenticated user

// @tag.name Admin
// @tag.description Admin-only user management endpoints

// @tag.name Health
// @tag.description Health check endpoints
